package router

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ledgerpay/user-service/internal/application"
	"github.com/ledgerpay/user-service/internal/domain/identity"
	"github.com/ledgerpay/user-service/internal/domain/repository"
	handlers "github.com/ledgerpay/user-service/internal/interface/http"
	"github.com/ledgerpay/user-service/internal/router/modules"
	"github.com/ledgerpay/user-service/pkg/helpers"
)

// Deps carries the concrete dependencies the HTTP modules need. Everything is
// wired explicitly in main; there is no global registry.
type Deps struct {
	Repo     repository.UserRepository
	Users    *application.UserService
	Identity identity.Provider
	JWT      *helpers.JWTManager
	RDB      *redis.Client
	Logger   *logrus.Logger
}

// InitModules builds the handlers and registers all feature modules with the
// router registry.
func InitModules(r *Registry, d Deps) {
	userHandler := handlers.NewUserHandler(d.Users, d.Logger)
	authHandler := handlers.NewAuthHandler(d.Repo, d.Identity, d.Users, d.Logger)

	r.Add(modules.NewAuthModule(authHandler, d.RDB))
	r.Add(modules.NewUserModule(userHandler, d.JWT, d.RDB))
}
