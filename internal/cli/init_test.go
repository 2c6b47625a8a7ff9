package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func runInit(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newInitCmd(isolatedLoader(t))
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestInitCreatesOutputDir(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "results")
	out, err := runInit(t, "--targets", "./plugin", "--output-dir", outputDir)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(outputDir); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}
	if !strings.Contains(out, "Environment looks good") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestInitValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no targets", args: nil, wantErr: "no targets"},
		{name: "bad format", args: []string{"--targets", "./p", "--formats", "xml"}, wantErr: "unsupported format"},
		{name: "unknown detector", args: []string{"--targets", "./p", "--detectors", "plugins"}, wantErr: "unknown detector"},
		{name: "redis unreachable", args: []string{"--targets", "./p", "--redis-url", "redis://127.0.0.1:1"}, wantErr: "redis"},
		{name: "nats unreachable", args: []string{"--targets", "./p", "--nats-url", "nats://127.0.0.1:1"}, wantErr: "nats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wd, wdErr := os.Getwd()
			if wdErr != nil {
				t.Fatalf("getwd: %v", wdErr)
			}
			if cdErr := os.Chdir(t.TempDir()); cdErr != nil {
				t.Fatalf("chdir: %v", cdErr)
			}
			t.Cleanup(func() { _ = os.Chdir(wd) })
			_, err := runInit(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestInitPingsRedis(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	t.Cleanup(srv.Close)

	if _, err := runInit(t, "--targets", "./p", "--output-dir", t.TempDir(), "--redis-url", "redis://"+srv.Addr()); err != nil {
		t.Fatalf("init with redis failed: %v", err)
	}
}
