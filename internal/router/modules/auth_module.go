package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/ledgerpay/user-service/internal/interface/http"
	"github.com/ledgerpay/user-service/internal/interface/middleware"
)

// AuthModule wires the public identity routes with per-IP rate limiting.
type AuthModule struct {
	Handler *handlers.AuthHandler
	RDB     *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, RDB: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	signupLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIP(), nil)
	codeLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	auth := rg.Group("/auth")
	{
		auth.POST("/signup", signupLimiter, m.Handler.SignUp)
		auth.POST("/signin", signupLimiter, m.Handler.SignIn)
		auth.POST("/confirm", codeLimiter, m.Handler.Confirm)
		auth.POST("/resend-code", codeLimiter, m.Handler.ResendCode)
	}
}
