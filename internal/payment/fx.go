package payment

import (
	"go.uber.org/fx"

	"github.com/garethtyler2/monthlyclub-sub003/internal/payment/repository"
	"github.com/garethtyler2/monthlyclub-sub003/internal/payment/service"
	"github.com/garethtyler2/monthlyclub-sub003/internal/payment/stripe"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(stripe.NewCharger),
	fx.Provide(service.NewService),
)
