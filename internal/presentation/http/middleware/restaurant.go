package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/dinein-api/internal/domain/repository"
	infraRepo "github.com/sangkips/dinein-api/internal/infrastructure/repository"
	"github.com/sangkips/dinein-api/internal/presentation/http/dto/response"
)

const (
	restaurantIDKey = "restaurant_id"
	restaurantKey   = "restaurant"
)

// RestaurantMiddleware resolves the :slug path parameter to a restaurant and
// scopes the request context to it
func RestaurantMiddleware(restaurantRepo repository.RestaurantRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		if slug == "" {
			response.BadRequest(c, "slug required")
			c.Abort()
			return
		}

		restaurant, err := restaurantRepo.GetBySlug(c.Request.Context(), slug)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if restaurant == nil {
			response.NotFound(c, "Restaurant not found")
			c.Abort()
			return
		}

		// Set restaurant in Gin context (for middleware/handlers)
		c.Set(restaurantIDKey, restaurant.ID)
		c.Set(restaurantKey, restaurant)

		// Also set restaurant ID in request context (for services/repositories)
		ctx := infraRepo.WithRestaurant(c.Request.Context(), restaurant.ID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
