package detector

import (
	"context"

	"github.com/example/wp-secmeta/internal/security"
)

const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Target is a provisioned package ready for inspection.
type Target struct {
	Locator string
	Dir     string
}

// Result represents a single detector finding for a target.
type Result struct {
	Target   string                 `json:"target"`
	Detector string                 `json:"detector"`
	Severity string                 `json:"severity"`
	Summary  string                 `json:"summary"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Security *security.Summary      `json:"security,omitempty"`
}

// Passed reports whether the finding is informational only.
func (r Result) Passed() bool {
	return r.Severity == SeverityInfo
}

// Detector is implemented by modules that can analyze a provisioned package.
type Detector interface {
	Name() string
	Detect(ctx context.Context, target Target) (Result, error)
}
