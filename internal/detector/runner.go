package detector

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/example/wp-secmeta/internal/logging"
	"github.com/example/wp-secmeta/internal/provision"
)

const provisionDetector = "provision"

// Registry maps detector names to constructors.
type Registry map[string]Factory

// Factory builds a detector instance.
type Factory func() Detector

// DefaultRegistry contains built-in detectors.
var DefaultRegistry = Registry{
	"security-contact": func() Detector { return NewSecurityContactDetector(nil) },
}

// BuildDetectors instantiates detectors from the provided names.
func (r Registry) BuildDetectors(names []string) ([]Detector, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var detectors []Detector
	seen := map[string]struct{}{}
	for _, name := range names {
		factory, ok := r[name]
		if !ok {
			return nil, fmt.Errorf("unknown detector: %s", name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		detectors = append(detectors, factory())
	}
	return detectors, nil
}

// Run provisions each target and runs every detector against it. Up to threads
// targets are processed at once; results come back in target order.
func Run(ctx context.Context, prov provision.Provisioner, detectors []Detector, targets []string, threads int) ([]Result, error) {
	if len(detectors) == 0 || len(targets) == 0 {
		return nil, nil
	}
	if threads < 1 {
		threads = 1
	}

	perTarget := make([][]Result, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			results, err := runTarget(gctx, prov, detectors, target)
			perTarget[i] = results
			return err
		})
	}

	err := g.Wait()

	var results []Result
	for _, batch := range perTarget {
		results = append(results, batch...)
	}
	return results, err
}

func runTarget(ctx context.Context, prov provision.Provisioner, detectors []Detector, locator string) ([]Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ws, err := prov.Provision(ctx, locator)
	if err != nil {
		logging.Error("detector", "provision failed", "target", locator, "error", err)
		return []Result{{
			Target:   locator,
			Detector: provisionDetector,
			Severity: SeverityError,
			Summary:  fmt.Sprintf("provision failed: %v", err),
		}}, nil
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logging.Warn("detector", "workspace cleanup failed", "target", locator, "error", err)
		}
	}()

	target := Target{Locator: locator, Dir: ws.Dir}
	var results []Result
	for _, detector := range detectors {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result, err := detector.Detect(ctx, target)
		if err != nil {
			results = append(results, Result{
				Target:   locator,
				Detector: detector.Name(),
				Severity: SeverityError,
				Summary:  fmt.Sprintf("detector error: %v", err),
			})
			continue
		}
		results = append(results, result)
	}
	return results, nil
}
