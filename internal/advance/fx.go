package advance

import (
	"github.com/smallbiznis/paybook/internal/advance/repository"
	"github.com/smallbiznis/paybook/internal/advance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("advance.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
