package discount

import (
	"github.com/smallbiznis/billingcore/internal/discount/domain"
	"github.com/smallbiznis/billingcore/internal/discount/repository"
	"github.com/smallbiznis/billingcore/internal/discount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("discount.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(svc domain.Service) domain.Evaluator { return svc }),
)
