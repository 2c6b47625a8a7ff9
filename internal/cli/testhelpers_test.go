package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/wp-secmeta/internal/config"
)

func writePackage(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func pluginHeader(security string) string {
	header := "<?php\n/**\n * Plugin Name: Demo Plugin\n * Version: 1.0.0\n"
	if security != "" {
		header += " * Security: " + security + "\n"
	}
	return header + " */\n"
}

func passingPlugin(t *testing.T) string {
	return writePackage(t, map[string]string{
		"demo.php":    pluginHeader("security@example.com"),
		"SECURITY.md": "# Security\n\nReport issues to mailto:Security@Example.com.\n",
	})
}

func failingPlugin(t *testing.T) string {
	return writePackage(t, map[string]string{
		"demo.php":    pluginHeader("security@example.com"),
		"SECURITY.md": "# Security\n\nReport issues to other@example.org.\n",
	})
}

func isolatedLoader(t *testing.T) *config.Loader {
	t.Helper()
	return &config.Loader{ConfigPath: filepath.Join(t.TempDir(), "missing.yml")}
}
