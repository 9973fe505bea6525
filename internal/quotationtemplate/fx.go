package quotationtemplate

import (
	"github.com/smallbiznis/billingcore/internal/quotationtemplate/repository"
	"github.com/smallbiznis/billingcore/internal/quotationtemplate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quotationtemplate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
