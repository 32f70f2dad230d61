package action

import (
	"github.com/schoolgle/schoolgle/internal/action/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("action.repository",
	fx.Provide(repository.Provide),
)
