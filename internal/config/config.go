package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath  = "secmeta.config.yml"
	DefaultNATSSubject = "secmeta.events"
	MaxThreads         = 64

	envTargets     = "SECMETA_TARGETS"
	envTargetsFile = "SECMETA_TARGETS_FILE"
	envThreads     = "SECMETA_THREADS"
	envOutputDir   = "SECMETA_OUTPUT_DIR"
	envFormats     = "SECMETA_FORMATS"
	envDetectors   = "SECMETA_DETECTORS"
	envStrict      = "SECMETA_STRICT"
	envSummaryFile = "SECMETA_SUMMARY_FILE"
	envTimeout     = "SECMETA_TIMEOUT"
	envRedisURL    = "SECMETA_REDIS_URL"
	envRedisTTL    = "SECMETA_REDIS_TTL"
	envNATSURL     = "SECMETA_NATS_URL"
	envNATSSubject = "SECMETA_NATS_SUBJECT"
	envMetricsFile = "SECMETA_METRICS_FILE"
)

var supportedFormats = map[string]struct{}{"json": {}, "csv": {}}

// Loader merges configuration coming from files, environment variables, and CLI flags.
type Loader struct {
	ConfigPath string
}

// RuntimeConfig contains the fully merged settings required by sub-commands.
type RuntimeConfig struct {
	Targets     []string
	Threads     int
	OutputDir   string
	Formats     []string
	Detectors   []string
	Strict      bool
	SummaryFile string
	Timeout     time.Duration
	RedisURL    string
	RedisTTL    time.Duration
	NATSURL     string
	NATSSubject string
	MetricsFile string
}

// Overrides captures values coming from env vars or CLI flags.
type Overrides struct {
	Targets     []string
	TargetsFile string
	Threads     int
	ThreadsSet  bool
	OutputDir   string
	Formats     []string
	Detectors   []string
	Strict      *bool
	SummaryFile string
	Timeout     time.Duration
	RedisURL    string
	RedisTTL    time.Duration
	NATSURL     string
	NATSSubject string
	MetricsFile string
}

// DefaultRuntimeConfig returns the baseline configuration when no overrides are provided.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Threads:     4,
		OutputDir:   "scan-results",
		Formats:     []string{"json"},
		Detectors:   []string{"security-contact"},
		Timeout:     30 * time.Second,
		RedisTTL:    7 * 24 * time.Hour,
		NATSSubject: DefaultNATSSubject,
	}
}

// Load resolves the final runtime configuration.
func (l Loader) Load(override Overrides) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	path := l.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	if fileExists(path) {
		fileOv, err := loadFromFile(path)
		if err != nil {
			return cfg, err
		}
		if err := cfg.apply(fileOv); err != nil {
			return cfg, err
		}
	}

	envOv, err := overridesFromEnv()
	if err != nil {
		return cfg, err
	}
	if err := cfg.apply(envOv); err != nil {
		return cfg, err
	}

	if err := cfg.apply(override); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate ensures the config contains the minimum required data for scan/init commands.
func (c RuntimeConfig) Validate() error {
	if len(c.Targets) == 0 {
		return errors.New("no targets configured; provide --targets, --targets-file, or set SECMETA_TARGETS")
	}

	if c.Threads < 1 || c.Threads > MaxThreads {
		return fmt.Errorf("threads must be between 1 and %d (got %d)", MaxThreads, c.Threads)
	}

	if len(c.Formats) == 0 {
		return errors.New("at least one output format must be specified")
	}

	for _, format := range c.Formats {
		if _, ok := supportedFormats[strings.ToLower(format)]; !ok {
			return fmt.Errorf("unsupported format %s", format)
		}
	}

	if len(c.Detectors) == 0 {
		return errors.New("at least one detector must be specified")
	}

	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive (got %s)", c.Timeout)
	}

	return nil
}

func (c *RuntimeConfig) apply(src Overrides) error {
	if len(src.Targets) > 0 {
		c.Targets = cleanList(src.Targets)
	}

	if src.TargetsFile != "" {
		values, err := readTargetsFile(src.TargetsFile)
		if err != nil {
			return err
		}
		c.Targets = values
	}

	if src.ThreadsSet {
		c.Threads = src.Threads
	}

	if src.OutputDir != "" {
		c.OutputDir = src.OutputDir
	}

	if len(src.Formats) > 0 {
		c.Formats = cleanList(src.Formats)
	}

	if len(src.Detectors) > 0 {
		c.Detectors = cleanList(src.Detectors)
	}

	if src.Strict != nil {
		c.Strict = *src.Strict
	}

	if src.SummaryFile != "" {
		c.SummaryFile = src.SummaryFile
	}

	if src.Timeout != 0 {
		c.Timeout = src.Timeout
	}

	if src.RedisURL != "" {
		c.RedisURL = src.RedisURL
	}

	if src.RedisTTL != 0 {
		c.RedisTTL = src.RedisTTL
	}

	if src.NATSURL != "" {
		c.NATSURL = src.NATSURL
	}

	if src.NATSSubject != "" {
		c.NATSSubject = src.NATSSubject
	}

	if src.MetricsFile != "" {
		c.MetricsFile = src.MetricsFile
	}

	return nil
}

func loadFromFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, err
	}

	type rawConfig struct {
		Targets     targetList `yaml:"targets"`
		TargetsFile string     `yaml:"targetsFile"`
		Threads     *int       `yaml:"threads"`
		OutputDir   string     `yaml:"outputDir"`
		Formats     []string   `yaml:"formats"`
		Detectors   []string   `yaml:"detectors"`
		Strict      *bool      `yaml:"strict"`
		SummaryFile string     `yaml:"summaryFile"`
		Timeout     string     `yaml:"timeout"`
		RedisURL    string     `yaml:"redisURL"`
		RedisTTL    string     `yaml:"redisTTL"`
		NATSURL     string     `yaml:"natsURL"`
		NATSSubject string     `yaml:"natsSubject"`
		MetricsFile string     `yaml:"metricsFile"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Overrides{}, err
	}

	over := Overrides{
		Targets:     raw.Targets,
		TargetsFile: raw.TargetsFile,
		OutputDir:   raw.OutputDir,
		Formats:     raw.Formats,
		Detectors:   raw.Detectors,
		Strict:      raw.Strict,
		SummaryFile: raw.SummaryFile,
		RedisURL:    raw.RedisURL,
		NATSURL:     raw.NATSURL,
		NATSSubject: raw.NATSSubject,
		MetricsFile: raw.MetricsFile,
	}

	if raw.Threads != nil {
		over.Threads = *raw.Threads
		over.ThreadsSet = true
	}

	if over.Timeout, err = parseDuration("timeout", raw.Timeout); err != nil {
		return Overrides{}, err
	}

	if over.RedisTTL, err = parseDuration("redisTTL", raw.RedisTTL); err != nil {
		return Overrides{}, err
	}

	return over, nil
}

func overridesFromEnv() (Overrides, error) {
	ov := Overrides{}

	if value := os.Getenv(envTargets); value != "" {
		ov.Targets = ParseTargetsList(value)
	}

	if value := os.Getenv(envTargetsFile); value != "" {
		ov.TargetsFile = value
	}

	if value := os.Getenv(envThreads); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.Threads = parsed
			ov.ThreadsSet = true
		}
	}

	if value := os.Getenv(envOutputDir); value != "" {
		ov.OutputDir = value
	}

	if value := os.Getenv(envFormats); value != "" {
		ov.Formats = ParseFormats(value)
	}

	if value := os.Getenv(envDetectors); value != "" {
		ov.Detectors = ParseDetectors(value)
	}

	if value := os.Getenv(envStrict); value != "" {
		parsed := strings.EqualFold(value, "true") || value == "1"
		ov.Strict = &parsed
	}

	if value := os.Getenv(envSummaryFile); value != "" {
		ov.SummaryFile = value
	}

	var err error
	if ov.Timeout, err = parseDuration(envTimeout, os.Getenv(envTimeout)); err != nil {
		return ov, err
	}

	if value := os.Getenv(envRedisURL); value != "" {
		ov.RedisURL = value
	}

	if ov.RedisTTL, err = parseDuration(envRedisTTL, os.Getenv(envRedisTTL)); err != nil {
		return ov, err
	}

	if value := os.Getenv(envNATSURL); value != "" {
		ov.NATSURL = value
	}

	if value := os.Getenv(envNATSSubject); value != "" {
		ov.NATSSubject = value
	}

	if value := os.Getenv(envMetricsFile); value != "" {
		ov.MetricsFile = value
	}

	return ov, nil
}

// ParseTargetsList turns comma or newline separated input into individual targets.
func ParseTargetsList(input string) []string {
	return splitOnDelimiters(input, []rune{',', '\n', '\r'})
}

// ParseFormats splits comma separated format strings.
func ParseFormats(input string) []string {
	return splitOnDelimiters(input, []rune{',', '\n', '\r', ' '})
}

// ParseDetectors splits comma separated detector names.
func ParseDetectors(input string) []string {
	return splitOnDelimiters(input, []rune{',', '\n', '\r', ' '})
}

func parseDuration(name, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return d, nil
}

func splitOnDelimiters(input string, delims []rune) []string {
	if input == "" {
		return nil
	}

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	separator := func(r rune) bool {
		for _, d := range delims {
			if r == d {
				return true
			}
		}
		return false
	}

	parts := strings.FieldsFunc(trimmed, separator)
	return cleanList(parts)
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		candidate := strings.TrimSpace(v)
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

func readTargetsFile(path string) ([]string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var targets []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return targets, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// targetList enables YAML fields that can be specified as a scalar or sequence.
type targetList []string

func (t *targetList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, node := range value.Content {
			out = append(out, strings.TrimSpace(node.Value))
		}
		*t = cleanList(out)
	case yaml.ScalarNode:
		*t = ParseTargetsList(value.Value)
	default:
		return fmt.Errorf("unsupported YAML type for targets")
	}
	return nil
}
