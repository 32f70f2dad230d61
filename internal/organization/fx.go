package organization

import (
	"github.com/schoolgle/schoolgle/internal/organization/repository"
	"github.com/schoolgle/schoolgle/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
