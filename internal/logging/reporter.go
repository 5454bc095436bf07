package logging

import (
	"log/slog"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// Reporter logs every report at error level with its source and kind.
type Reporter struct {
	logger *slog.Logger
}

var _ ports.Reporter = (*Reporter)(nil)

// NewReporter returns a reporter writing to logger (a no-op logger when nil).
func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = NewNop()
	}
	return &Reporter{logger: logger}
}

// Report implements ports.Reporter.
func (r *Reporter) Report(source string, err error) {
	if err == nil {
		return
	}
	r.logger.Error("canopy error", "source", source, "kind", domain.ErrorKind(err), "error", err)
}
