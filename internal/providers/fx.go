package providers

import (
	"github.com/schoolgle/schoolgle/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	pdf.Module,
)
