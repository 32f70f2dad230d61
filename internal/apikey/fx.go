package apikey

import (
	"github.com/schoolgle/schoolgle/internal/apikey/repository"
	"github.com/schoolgle/schoolgle/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
