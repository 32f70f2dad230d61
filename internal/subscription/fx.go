package subscription

import (
	"github.com/schoolgle/schoolgle/internal/subscription/repository"
	"github.com/schoolgle/schoolgle/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
