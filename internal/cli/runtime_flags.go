package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/wp-secmeta/internal/config"
)

// runtimeFlagSet tracks shared scan/init/doctor flags before they are converted into config overrides.
type runtimeFlagSet struct {
	targets     string
	targetsFile string
	threads     int
	outputDir   string
	formats     string
	detectors   string
	strict      bool
	summaryFile string
	timeout     time.Duration
	redisURL    string
	natsURL     string
	natsSubject string
	metricsFile string
}

func bindRuntimeFlags(cmd *cobra.Command, flags *runtimeFlagSet) {
	cmd.Flags().StringVar(&flags.targets, "targets", "", "Comma-separated list of package URLs, zip files or directories (overrides config)")
	cmd.Flags().StringVar(&flags.targetsFile, "targets-file", "", "Path to a file with one target per line")
	cmd.Flags().IntVar(&flags.threads, "threads", 0, fmt.Sprintf("Number of packages checked concurrently (1-%d)", config.MaxThreads))
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Directory for scan artifacts")
	cmd.Flags().StringVar(&flags.formats, "formats", "", "Comma-separated output formats (json,csv)")
	cmd.Flags().StringVar(&flags.detectors, "detectors", "", "Comma-separated detectors to run (security-contact)")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Fail when any package does not pass")
	cmd.Flags().StringVar(&flags.summaryFile, "summary-file", "", "Optional summary JSON output path")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Download and network check timeout (e.g. 30s)")
	cmd.Flags().StringVar(&flags.redisURL, "redis-url", "", "Store results in Redis (redis://host:port/db)")
	cmd.Flags().StringVar(&flags.natsURL, "nats-url", "", "Publish events to NATS (nats://host:port)")
	cmd.Flags().StringVar(&flags.natsSubject, "nats-subject", "", "NATS subject for published events")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this path")
}

func (f runtimeFlagSet) toOverrides(cmd *cobra.Command) config.Overrides {
	ov := config.Overrides{}
	changed := cmd.Flags().Changed

	if changed("targets") {
		ov.Targets = config.ParseTargetsList(f.targets)
	}

	if changed("targets-file") {
		ov.TargetsFile = f.targetsFile
	}

	if changed("threads") {
		ov.Threads = f.threads
		ov.ThreadsSet = true
	}

	if changed("output-dir") {
		ov.OutputDir = f.outputDir
	}

	if changed("formats") {
		ov.Formats = config.ParseFormats(f.formats)
	}

	if changed("detectors") {
		ov.Detectors = config.ParseDetectors(f.detectors)
	}

	if changed("strict") {
		strict := f.strict
		ov.Strict = &strict
	}

	if changed("summary-file") {
		ov.SummaryFile = f.summaryFile
	}

	if changed("timeout") {
		ov.Timeout = f.timeout
	}

	if changed("redis-url") {
		ov.RedisURL = f.redisURL
	}

	if changed("nats-url") {
		ov.NATSURL = f.natsURL
	}

	if changed("nats-subject") {
		ov.NATSSubject = f.natsSubject
	}

	if changed("metrics-file") {
		ov.MetricsFile = f.metricsFile
	}

	return ov
}
