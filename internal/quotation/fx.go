package quotation

import (
	"github.com/smallbiznis/billingcore/internal/quotation/repository"
	"github.com/smallbiznis/billingcore/internal/quotation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quotation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
