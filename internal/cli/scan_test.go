package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/example/wp-secmeta/internal/config"
	"github.com/example/wp-secmeta/internal/detector"
	"github.com/example/wp-secmeta/internal/events"
	"github.com/example/wp-secmeta/internal/provision"
	"github.com/example/wp-secmeta/internal/report"
	"github.com/example/wp-secmeta/internal/store"
)

func decodeEvents(t *testing.T, data string) []events.Event {
	t.Helper()
	var out []events.Event
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		var evt events.Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", line, err)
		}
		out = append(out, evt)
	}
	return out
}

func TestScanCommandWritesArtifacts(t *testing.T) {
	good := passingPlugin(t)
	bad := failingPlugin(t)
	outputDir := t.TempDir()
	summaryPath := filepath.Join(outputDir, "summary.json")
	metricsPath := filepath.Join(outputDir, "secmeta.prom")

	cmd := newScanCmd(isolatedLoader(t))
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{
		"--targets", good + "," + bad,
		"--output-dir", outputDir,
		"--formats", "json,csv",
		"--summary-file", summaryPath,
		"--metrics-file", metricsPath,
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("scan command failed: %v", err)
	}

	jsonFiles, err := filepath.Glob(filepath.Join(outputDir, "scan_*.json"))
	if err != nil || len(jsonFiles) != 1 {
		t.Fatalf("expected one json artifact, found %v (%v)", jsonFiles, err)
	}
	data, err := os.ReadFile(jsonFiles[0])
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	results, err := report.Load(data)
	if err != nil {
		t.Fatalf("artifact does not validate: %v", err)
	}
	if len(results) != 2 || results[0].Target != good || results[1].Target != bad {
		t.Fatalf("results not in target order: %+v", results)
	}
	if !results[0].Passed() || results[1].Passed() {
		t.Fatalf("unexpected outcomes: %+v", results)
	}

	csvFiles, _ := filepath.Glob(filepath.Join(outputDir, "scan_*.csv"))
	if len(csvFiles) != 1 {
		t.Fatalf("expected one csv artifact, found %v", csvFiles)
	}
	csvFile, err := os.Open(csvFiles[0])
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer csvFile.Close()
	rows, err := csv.NewReader(csvFile).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "target" || rows[1][4] != "security@example.com" {
		t.Fatalf("unexpected csv rows: %v", rows)
	}

	if _, err := os.Stat(summaryPath); err != nil {
		t.Fatalf("summary not created: %v", err)
	}
	metrics, err := os.ReadFile(metricsPath)
	if err != nil || !bytes.Contains(metrics, []byte("secmeta_detections_total")) {
		t.Fatalf("metrics textfile missing or incomplete: %v\n%s", err, metrics)
	}

	evts := decodeEvents(t, buf.String())
	if evts[0].Type != events.TypeScanStart || evts[len(evts)-1].Type != events.TypeScanFinished {
		t.Fatalf("unexpected event order: %+v", evts)
	}
	scanID := evts[0].ScanID
	detections := 0
	for _, evt := range evts {
		if evt.ScanID != scanID || scanID == "" {
			t.Fatalf("events must share one scan id: %+v", evt)
		}
		if evt.Type == events.TypeDetection {
			detections++
		}
	}
	if detections != 2 {
		t.Fatalf("expected 2 detection events, got %d", detections)
	}
}

func TestScanCommandStrictFails(t *testing.T) {
	cmd := newScanCmd(isolatedLoader(t))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--targets", failingPlugin(t),
		"--output-dir", t.TempDir(),
		"--strict",
	})

	err := cmd.Execute()
	if !errors.Is(err, errStrictFailure) {
		t.Fatalf("expected strict failure, got %v", err)
	}
}

func TestScanCommandRejectsInvalidConfig(t *testing.T) {
	cmd := newScanCmd(isolatedLoader(t))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--targets", "./x", "--threads", "0"})

	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "threads") {
		t.Fatalf("expected threads validation error, got %v", err)
	}
}

func TestRunScanStoresResultsInRedis(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	t.Cleanup(srv.Close)

	good := passingPlugin(t)
	missing := filepath.Join(t.TempDir(), "absent")

	cfg := config.DefaultRuntimeConfig()
	cfg.Targets = []string{good, missing}
	cfg.OutputDir = t.TempDir()
	cfg.RedisURL = "redis://" + srv.Addr()

	buf := &bytes.Buffer{}
	if err := runScan(context.Background(), buf, cfg, provision.NewArchiveProvisioner(nil)); err != nil {
		t.Fatalf("runScan: %v", err)
	}

	st, err := store.NewRedisStore(cfg.RedisURL, cfg.RedisTTL)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	rec, err := st.Latest(context.Background(), good)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(rec.Results) != 1 || !rec.Results[0].Passed() {
		t.Fatalf("unexpected stored record: %+v", rec)
	}

	rec, err = st.Latest(context.Background(), missing)
	if err != nil {
		t.Fatalf("latest for missing target: %v", err)
	}
	if rec.Results[0].Severity != detector.SeverityError {
		t.Fatalf("expected provision error to be stored, got %+v", rec.Results[0])
	}

	targets, err := st.ScanTargets(context.Background(), rec.ScanID)
	if err != nil || len(targets) != 2 {
		t.Fatalf("expected 2 indexed targets, got %v (%v)", targets, err)
	}
}

func TestRunScanUnknownDetector(t *testing.T) {
	cfg := config.DefaultRuntimeConfig()
	cfg.Targets = []string{"./x"}
	cfg.Detectors = []string{"vulnerabilities"}

	err := runScan(context.Background(), &bytes.Buffer{}, cfg, provision.NewArchiveProvisioner(nil))
	if err == nil || !strings.Contains(err.Error(), "unknown detector") {
		t.Fatalf("expected unknown detector error, got %v", err)
	}
}

func TestCSVRowWithoutSecuritySummary(t *testing.T) {
	row := csvRow(detector.Result{Target: "t", Detector: "provision", Severity: detector.SeverityError, Summary: "boom"})
	if len(row) != len(csvHeader) || row[4] != "" {
		t.Fatalf("unexpected row %v", row)
	}
}
