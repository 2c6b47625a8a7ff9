package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/wp-secmeta/internal/config"
	"github.com/example/wp-secmeta/internal/detector"
	"github.com/example/wp-secmeta/internal/events"
	"github.com/example/wp-secmeta/internal/report"
	"github.com/example/wp-secmeta/internal/store"
)

func newReportCmd(loader *config.Loader) *cobra.Command {
	var inputPath string
	var scanID string
	var redisURL string
	var summaryPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate stats from a JSON scan artifact or a scan stored in Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				source  string
				results []detector.Result
				err     error
			)

			switch {
			case inputPath != "" && scanID != "":
				return errors.New("--input and --scan-id are mutually exclusive")
			case inputPath != "":
				source = inputPath
				results, err = loadArtifact(inputPath)
			case scanID != "":
				source = "redis:" + scanID
				results, err = loadStoredScan(cmd.Context(), loader, redisURL, scanID)
			default:
				return errors.New("--input or --scan-id is required")
			}
			if err != nil {
				return err
			}

			stats := report.Aggregate(results)
			fields := map[string]interface{}{
				"input":        source,
				"generatedAt":  time.Now().UTC().Format(time.RFC3339),
				"results":      stats.Results,
				"targets":      stats.Targets,
				"passing":      stats.Passing,
				"failing":      stats.Failing,
				"inconsistent": stats.Inconsistent,
				"errors":       stats.Errors,
				"issues":       stats.Issues,
			}

			emitter := events.NewScanEmitter(cmd.OutOrStdout(), scanID)
			if err := emitter.Emit(events.Event{Type: events.TypeReport, Message: "Report generated", Fields: fields}); err != nil {
				return err
			}

			if summaryPath != "" {
				if err := writeJSONFile(summaryPath, map[string]interface{}{"input": source, "stats": stats}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Summary written to %s\n", summaryPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to JSON scan artifact")
	cmd.Flags().StringVar(&scanID, "scan-id", "", "Read the results of a stored scan from Redis instead of a file")
	cmd.Flags().StringVar(&redisURL, "redis-url", "", "Redis holding stored scans (defaults to the configured redisURL)")
	cmd.Flags().StringVar(&summaryPath, "summary-file", "", "Optional path to store summary JSON")

	return cmd
}

func loadArtifact(path string) ([]detector.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	results, err := report.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return results, nil
}

func loadStoredScan(ctx context.Context, loader *config.Loader, redisURL, scanID string) ([]detector.Result, error) {
	cfg, err := loader.Load(config.Overrides{RedisURL: redisURL})
	if err != nil {
		return nil, err
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("--scan-id needs --redis-url or a configured redisURL")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.NewRedisStore(cfg.RedisURL, cfg.RedisTTL)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	return st.LoadScan(ctx, scanID)
}
