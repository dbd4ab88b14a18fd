package billing

import (
	"go.uber.org/fx"

	"github.com/garethtyler2/monthlyclub-sub003/internal/billing/service"
)

var Module = fx.Module("billing.runner",
	fx.Provide(service.NewRunner),
)
