package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/pkg/ports"
)

// Fallback bounds a primary analyzer by a timeout and consults a secondary one
// when the primary fails or returns nothing. It never returns an error.
type Fallback struct {
	primary   ports.Analyzer
	secondary ports.Analyzer
	timeout   time.Duration
	logger    *slog.Logger
}

// WithFallback wraps primary. secondary may be nil, in which case failures
// yield an empty label.
func WithFallback(primary, secondary ports.Analyzer, timeout time.Duration, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fallback{primary: primary, secondary: secondary, timeout: timeout, logger: logger}
}

// Analyze implements ports.Analyzer.
func (f *Fallback) Analyze(ctx context.Context, url string) (string, error) {
	if f.primary != nil {
		pctx := ctx
		if f.timeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, f.timeout)
			defer cancel()
		}
		label, err := f.primary.Analyze(pctx, url)
		if err == nil && label != "" {
			return label, nil
		}
		if err != nil {
			f.logger.Warn("Primary analyzer failed, falling back", "url", url, "err", err)
		}
	}
	if f.secondary == nil {
		return "", nil
	}
	label, err := f.secondary.Analyze(ctx, url)
	if err != nil {
		f.logger.Warn("Secondary analyzer failed", "url", url, "err", err)
		return "", nil
	}
	return label, nil
}
