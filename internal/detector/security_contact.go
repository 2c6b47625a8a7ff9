package detector

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/example/wp-secmeta/internal/security"
	"github.com/example/wp-secmeta/internal/wpmeta"
)

// SecurityContactDetector checks a package for consistent security contact metadata.
type SecurityContactDetector struct {
	scanner *security.Scanner
}

// NewSecurityContactDetector builds a detector with an optional custom scanner.
func NewSecurityContactDetector(scanner *security.Scanner) *SecurityContactDetector {
	if scanner == nil {
		reader := wpmeta.NewReader()
		scanner = security.NewScanner(reader, reader)
	}
	return &SecurityContactDetector{scanner: scanner}
}

// Name implements Detector.
func (d *SecurityContactDetector) Name() string {
	return "security-contact"
}

// Detect scans the target directory and grades the outcome.
func (d *SecurityContactDetector) Detect(ctx context.Context, target Target) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res, err := d.scanner.Scan(target.Dir)
	if err != nil {
		return Result{}, err
	}

	summary := res.Summary()
	summary.Directory = packageLocation(target, summary.Directory)
	result := Result{
		Target:   target.Locator,
		Detector: d.Name(),
		Severity: SeverityInfo,
		Metadata: map[string]interface{}{"issues": len(summary.Issues), "packageType": summary.PackageType},
		Security: &summary,
	}

	switch {
	case res.Passes():
		result.Summary = fmt.Sprintf("security contact %s declared", summary.PrimaryContact)
	case !res.IsConsistent():
		result.Severity = SeverityWarning
		result.Summary = fmt.Sprintf("security contacts disagree across %d sources", len(summary.Contacts))
	default:
		result.Severity = SeverityWarning
		result.Summary = "no security contact declared in the package header"
	}

	return result, nil
}

// packageLocation reports where the scanned root lives relative to the
// locator. Provisioned archives are extracted into a temporary directory that
// is removed after detection, so their roots are written as
// "<locator>!/<path inside archive>".
func packageLocation(target Target, root string) string {
	if target.Dir == target.Locator {
		return root
	}
	rel, err := filepath.Rel(target.Dir, root)
	if err != nil || rel == "." {
		return target.Locator
	}
	return target.Locator + "!/" + filepath.ToSlash(rel)
}
