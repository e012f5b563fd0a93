package auth

import (
	"github.com/smallbiznis/paybook/internal/auth/repository"
	"github.com/smallbiznis/paybook/internal/auth/service"
	"github.com/smallbiznis/paybook/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
