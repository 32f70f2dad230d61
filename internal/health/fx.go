package health

import (
	"github.com/schoolgle/schoolgle/internal/health/repository"
	"github.com/schoolgle/schoolgle/internal/health/service"
	"go.uber.org/fx"
)

var Module = fx.Module("health.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
