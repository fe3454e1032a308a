package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/ledgerpay/user-service/internal/interface/http"
	"github.com/ledgerpay/user-service/internal/interface/middleware"
	"github.com/ledgerpay/user-service/pkg/helpers"
)

// UserModule wires the user CRUD handlers and JWT middleware into routes.
// Protected: GET/PATCH /api/users/:id, PUT /api/users/:id/profile-picture,
// GET /api/users, GET /api/users/search
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
	RDB     *redis.Client
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, JWT: jwt, RDB: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(middleware.Auth(m.JWT))
	users.Use(
		middleware.RateLimit(m.RDB, 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP()),
		middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		users.GET("", m.Handler.ListUsers)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.GetUser)
		users.PATCH("/:id", m.Handler.UpdateUser)
		users.PUT("/:id/profile-picture", m.Handler.UploadProfilePicture)
	}
}
