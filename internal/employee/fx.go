package employee

import (
	"github.com/smallbiznis/paybook/internal/employee/repository"
	"github.com/smallbiznis/paybook/internal/employee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("employee.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
