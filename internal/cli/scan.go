package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/wp-secmeta/internal/config"
	"github.com/example/wp-secmeta/internal/detector"
	"github.com/example/wp-secmeta/internal/events"
	"github.com/example/wp-secmeta/internal/logging"
	"github.com/example/wp-secmeta/internal/metrics"
	"github.com/example/wp-secmeta/internal/provision"
	"github.com/example/wp-secmeta/internal/report"
	"github.com/example/wp-secmeta/internal/store"
)

var errStrictFailure = errors.New("strict mode: not every package passed")

func newScanCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Check every configured package for security contact metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := flags.toOverrides(cmd)
			cfg, err := loader.Load(overrides)
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := ensureOutputDir(cfg.OutputDir); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			return runScan(ctx, cmd.OutOrStdout(), cfg, provision.NewArchiveProvisionerWithTimeout(cfg.Timeout))
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}

func runScan(ctx context.Context, stdout io.Writer, cfg config.RuntimeConfig, prov provision.Provisioner) error {
	detectors, err := detector.DefaultRegistry.BuildDetectors(cfg.Detectors)
	if err != nil {
		return err
	}

	scanID := uuid.NewString()
	out := stdout
	if cfg.NATSURL != "" {
		conn, err := events.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		natsWriter := events.NewNATSWriter(conn, cfg.NATSSubject)
		defer func() {
			if err := natsWriter.Close(); err != nil {
				logging.Warn("scan", "nats flush failed", "error", err)
			}
		}()
		out = io.MultiWriter(stdout, natsWriter)
	}
	emitter := events.NewScanEmitter(out, scanID)

	var recorder metrics.Recorder = metrics.Noop{}
	if cfg.MetricsFile != "" {
		recorder = metrics.NewProm()
	}

	if err := emitter.Emit(events.Event{Type: events.TypeScanStart, Message: "Starting scan", Fields: map[string]interface{}{
		"targets":   len(cfg.Targets),
		"threads":   cfg.Threads,
		"detectors": cfg.Detectors,
	}}); err != nil {
		return err
	}

	start := time.Now()
	results, err := detector.Run(ctx, prov, detectors, cfg.Targets, cfg.Threads)
	if err != nil {
		return err
	}
	recorder.ObserveScanDuration(time.Since(start).Seconds())

	for _, res := range results {
		recorder.ObserveDetection(res.Detector, res.Severity, issueCount(res))
		if err := emitter.Emit(events.Event{Type: events.TypeDetection, Message: res.Summary, Fields: detectionFields(res)}); err != nil {
			return err
		}
	}

	timestamp := time.Now().UTC().Format("20060102_150405")
	var outputs []string
	for _, format := range cfg.Formats {
		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" {
			continue
		}

		outputPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("scan_%s.%s", timestamp, format))
		if err := writeArtifact(outputPath, format, results); err != nil {
			return err
		}

		outputs = append(outputs, outputPath)
		if err := emitter.Emit(events.Event{Type: events.TypeArtifactWritten, Fields: map[string]interface{}{"path": outputPath, "format": format}}); err != nil {
			return err
		}
	}

	if cfg.RedisURL != "" {
		if err := storeResults(ctx, cfg, scanID, results); err != nil {
			return err
		}
	}

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	stats := report.Aggregate(results)
	if cfg.SummaryFile != "" {
		if err := writeScanSummary(cfg.SummaryFile, scanID, cfg, outputs, stats); err != nil {
			return err
		}
	}

	if err := emitter.Emit(events.Event{Type: events.TypeScanFinished, Message: "Scan complete", Fields: map[string]interface{}{
		"artifacts":  len(outputs),
		"results":    stats.Results,
		"passing":    stats.Passing,
		"failing":    stats.Failing,
		"errors":     stats.Errors,
		"durationMs": time.Since(start).Milliseconds(),
	}}); err != nil {
		return err
	}

	if cfg.Strict && stats.Passing != stats.Results {
		return fmt.Errorf("%w (%d of %d results)", errStrictFailure, stats.Results-stats.Passing, stats.Results)
	}
	return nil
}

func storeResults(ctx context.Context, cfg config.RuntimeConfig, scanID string, results []detector.Result) error {
	st, err := store.NewRedisStore(cfg.RedisURL, cfg.RedisTTL)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveScan(ctx, scanID, results); err != nil {
		return fmt.Errorf("store results: %w", err)
	}
	logging.Info("scan", "results stored", "scanId", scanID, "targets", len(results))
	return nil
}

func detectionFields(res detector.Result) map[string]interface{} {
	fields := map[string]interface{}{
		"target":   res.Target,
		"detector": res.Detector,
		"severity": res.Severity,
	}
	if res.Security != nil {
		fields["passes"] = res.Security.Passes
		fields["consistent"] = res.Security.Consistent
		if res.Security.PrimaryContact != "" {
			fields["contact"] = res.Security.PrimaryContact
		}
		if len(res.Security.Issues) > 0 {
			fields["issues"] = res.Security.Issues
		}
	}
	return fields
}

func issueCount(res detector.Result) int {
	if res.Security == nil {
		return 0
	}
	return len(res.Security.Issues)
}

func writeScanSummary(path, scanID string, cfg config.RuntimeConfig, artifacts []string, stats report.Stats) error {
	summary := map[string]interface{}{
		"scanId":      scanID,
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
		"targets":     cfg.Targets,
		"detectors":   cfg.Detectors,
		"artifacts":   artifacts,
		"stats":       stats,
	}
	return writeJSONFile(path, summary)
}
