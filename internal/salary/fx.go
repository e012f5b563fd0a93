package salary

import (
	"github.com/smallbiznis/paybook/internal/salary/repository"
	"github.com/smallbiznis/paybook/internal/salary/service"
	"go.uber.org/fx"
)

var Module = fx.Module("salary.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
