package audit

import (
	"github.com/schoolgle/schoolgle/internal/audit/repository"
	"github.com/schoolgle/schoolgle/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
