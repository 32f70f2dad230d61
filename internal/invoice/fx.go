package invoice

import (
	"github.com/schoolgle/schoolgle/internal/invoice/repository"
	"github.com/schoolgle/schoolgle/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
