package wpmeta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFindMainFilePlugin(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a-helpers.php", "<?php\nfunction helper() {}\n")
	main := write(t, dir, "example.php", "<?php\n/*\n * Plugin Name: Example\n */\n")

	got, err := NewReader().FindMainFile(dir)
	require.NoError(t, err)
	assert.Equal(t, main, got)
}

func TestFindMainFileTheme(t *testing.T) {
	dir := t.TempDir()
	style := write(t, dir, "style.css", "/*\nTheme Name: Twenty Example\nSecurity: security@example.com\n*/\n")

	got, err := NewReader().FindMainFile(dir)
	require.NoError(t, err)
	assert.Equal(t, style, got)
}

func TestFindMainFileNone(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "index.php", "<?php // Silence is golden.\n")

	got, err := NewReader().FindMainFile(dir)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseHeaderFields(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "example.php", `<?php
/**
 * Plugin Name:       Example Plugin
 * Plugin URI:        https://example.com/plugin
 * Version:           1.2.3
 * Security:          https://example.com/security */
 * Version:           9.9.9
 */
`)

	fields, err := NewReader().ParseHeaderFields(path)
	require.NoError(t, err)
	assert.Equal(t, "Example Plugin", fields["plugin name"])
	assert.Equal(t, "https://example.com/plugin", fields["plugin uri"])
	assert.Equal(t, "https://example.com/security", fields["security"])
	assert.Equal(t, "1.2.3", fields["version"], "first occurrence wins")
}

func TestFindMainFileSingleLineOpener(t *testing.T) {
	dir := t.TempDir()
	main := write(t, dir, "example.php", "<?php /* Plugin Name: X\n Security: a@example.com */\n")

	got, err := NewReader().FindMainFile(dir)
	require.NoError(t, err)
	assert.Equal(t, main, got)

	fields, err := NewReader().ParseHeaderFields(main)
	require.NoError(t, err)
	assert.Equal(t, "X", fields["plugin name"])
	assert.Equal(t, "a@example.com", fields["security"])
}

func TestParseHeaderFieldsMissingFile(t *testing.T) {
	_, err := NewReader().ParseHeaderFields(filepath.Join(t.TempDir(), "missing.php"))
	assert.Error(t, err)
}

func TestSplitSections(t *testing.T) {
	text := "=== Example Plugin ===\r\nContributors: someone\r\n\r\n== Description ==\r\nDoes things.\r\n= Details =\r\nMore.\r\n\r\n== Security ==\r\nReport to security@example.com\r\n"

	sections := SplitSections(text)
	assert.Equal(t, "Does things.\n= Details =\nMore.", sections["description"])
	assert.Equal(t, "Report to security@example.com", sections["security"])
	assert.NotContains(t, sections, "example plugin")
}

func TestSplitSectionsMarkdown(t *testing.T) {
	sections := SplitSections("# Example\nIntro\n\n## Security\nSee https://example.com/security\n### Details\nmore\n")
	assert.Equal(t, "Intro", sections["example"])
	assert.Equal(t, "See https://example.com/security\n### Details\nmore", sections["security"])
}

func TestParseReadme(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "readme.txt", "== Security ==\nsec@example.com\n")

	sections, err := NewReader().ParseReadme(dir)
	require.NoError(t, err)
	assert.Equal(t, "sec@example.com", sections["security"])

	empty, err := NewReader().ParseReadme(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
