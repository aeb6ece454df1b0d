package renderer

import "github.com/cadencelab/tempolink/pkg/logger"

// ApplierOption applies a configuration option to the Applier.
type ApplierOption func(*Applier)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) ApplierOption {
	return func(a *Applier) {
		if l != nil {
			a.logger = l
		}
	}
}
