package access

import (
	"go.uber.org/fx"
)

var FxModule = fx.Module("access.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewResolver),
	fx.Provide(NewService),
)
