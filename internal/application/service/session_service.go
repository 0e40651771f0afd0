package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	"github.com/sangkips/dinein-api/internal/domain/repository"
	infraRepo "github.com/sangkips/dinein-api/internal/infrastructure/repository"
	"github.com/sangkips/dinein-api/pkg/apperror"
)

// SessionService opens and closes table sessions
type SessionService struct {
	tableRepo repository.TableRepository
}

// NewSessionService creates a new session service
func NewSessionService(tableRepo repository.TableRepository) *SessionService {
	return &SessionService{tableRepo: tableRepo}
}

// OpenSession starts a new session at the table with the given identifier
func (s *SessionService) OpenSession(ctx context.Context, tableIdentifier string) (*entity.TableSession, error) {
	restaurantID, ok := infraRepo.GetRestaurantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Restaurant context required")
	}

	table, err := s.tableRepo.GetByIdentifier(ctx, restaurantID, tableIdentifier)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, apperror.NewNotFoundError("Table")
	}

	session := &entity.TableSession{
		RestaurantID: restaurantID,
		TableID:      table.ID,
	}
	if err := s.tableRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	log.Info().Str("session_id", session.ID.String()).Str("table", table.Identifier).Msg("table session opened")
	return session, nil
}

// CloseSession closes a session. Closing a closed session is a no-op.
func (s *SessionService) CloseSession(ctx context.Context, id uuid.UUID) (*entity.TableSession, error) {
	session, err := s.tableRepo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NewNotFoundError("Session")
	}
	if !session.IsActive() {
		return session, nil
	}

	if err := s.tableRepo.CloseSession(ctx, id); err != nil {
		return nil, err
	}
	return s.tableRepo.GetSession(ctx, id)
}
