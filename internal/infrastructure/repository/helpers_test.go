package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entity.Restaurant{},
		&entity.Table{},
		&entity.TableSession{},
		&entity.Order{},
		&entity.OrderItem{},
		&entity.IdempotencyRecord{},
	))
	return db
}

type fixture struct {
	restaurant *entity.Restaurant
	table      *entity.Table
	session    *entity.TableSession
}

func seedFixture(t *testing.T, db *gorm.DB, slug string) fixture {
	t.Helper()

	restaurant := &entity.Restaurant{Name: "Test " + slug, Slug: slug}
	require.NoError(t, db.Create(restaurant).Error)

	table := &entity.Table{RestaurantID: restaurant.ID, Identifier: "T1"}
	require.NoError(t, db.Create(table).Error)

	session := &entity.TableSession{RestaurantID: restaurant.ID, TableID: table.ID}
	require.NoError(t, db.Create(session).Error)

	return fixture{restaurant: restaurant, table: table, session: session}
}

func (f fixture) ctx() context.Context {
	return WithRestaurant(context.Background(), f.restaurant.ID)
}

func (f fixture) newOrder() *entity.Order {
	return &entity.Order{
		RestaurantID: f.restaurant.ID,
		TableID:      f.table.ID,
		SessionID:    f.session.ID,
		Total:        1500,
		Items: []entity.OrderItem{
			{Name: "Empanada", Quantity: 3, UnitPrice: 500},
		},
	}
}
