// Package provision turns a package locator (URL, zip file or directory) into a
// local directory that can be scanned.
package provision

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBytes     = 64 * 1024 * 1024
	maxExtractedBytes   = 256 * 1024 * 1024
	tempDirPattern      = "wp-secmeta-*"
	downloadFilePattern = "wp-secmeta-download-*.zip"
)

// ErrRetrieval is returned when a locator cannot be fetched or is not a valid archive.
var ErrRetrieval = errors.New("package retrieval failed")

// Provisioner prepares a package for scanning.
type Provisioner interface {
	Provision(ctx context.Context, locator string) (*Workspace, error)
}

// Workspace is a provisioned package directory. Close removes any temporary
// files created for it; directories passed in by the caller are left alone.
type Workspace struct {
	Locator string
	Dir     string
	cleanup func() error
}

// Close releases the workspace.
func (w *Workspace) Close() error {
	if w == nil || w.cleanup == nil {
		return nil
	}
	err := w.cleanup()
	w.cleanup = nil
	return err
}

// ArchiveProvisioner handles local directories, local zip files and zip files
// served over HTTP(S).
type ArchiveProvisioner struct {
	client   *http.Client
	maxBytes int64
}

// NewArchiveProvisioner builds a provisioner with an optional custom HTTP client.
func NewArchiveProvisioner(client *http.Client) *ArchiveProvisioner {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &ArchiveProvisioner{client: client, maxBytes: defaultMaxBytes}
}

// NewArchiveProvisionerWithTimeout builds a provisioner whose downloads time out after timeout.
func NewArchiveProvisionerWithTimeout(timeout time.Duration) *ArchiveProvisioner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewArchiveProvisioner(&http.Client{Timeout: timeout})
}

// Provision resolves locator into a directory.
func (p *ArchiveProvisioner) Provision(ctx context.Context, locator string) (*Workspace, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, fmt.Errorf("%w: empty locator", ErrRetrieval)
	}

	if IsRemote(locator) {
		return p.provisionRemote(ctx, locator)
	}

	info, err := os.Stat(locator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	if info.IsDir() {
		return &Workspace{Locator: locator, Dir: locator}, nil
	}
	return extractToTemp(locator, locator)
}

// IsRemote reports whether locator is an HTTP(S) URL.
func IsRemote(locator string) bool {
	lower := strings.ToLower(strings.TrimSpace(locator))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (p *ArchiveProvisioner) provisionRemote(ctx context.Context, locator string) (*Workspace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrRetrieval, resp.StatusCode)
	}

	file, err := os.CreateTemp("", downloadFilePattern)
	if err != nil {
		return nil, err
	}
	archivePath := file.Name()
	defer os.Remove(archivePath)

	written, err := io.Copy(file, io.LimitReader(resp.Body, p.maxBytes+1))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: download: %v", ErrRetrieval, err)
	}
	if written > p.maxBytes {
		return nil, fmt.Errorf("%w: archive exceeds %d bytes", ErrRetrieval, p.maxBytes)
	}

	return extractToTemp(locator, archivePath)
}

func extractToTemp(locator, archivePath string) (*Workspace, error) {
	dir, err := os.MkdirTemp("", tempDirPattern)
	if err != nil {
		return nil, err
	}

	if err := Extract(archivePath, dir); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	return &Workspace{
		Locator: locator,
		Dir:     dir,
		cleanup: func() error { return os.RemoveAll(dir) },
	}, nil
}

// Extract unpacks the zip archive at archivePath into dest. Entries that would
// land outside dest are rejected.
func Extract(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open archive: %v", ErrRetrieval, err)
	}
	defer reader.Close()

	cleanDest := filepath.Clean(dest)
	var total int64
	for _, entry := range reader.File {
		target := filepath.Join(cleanDest, filepath.FromSlash(entry.Name))
		if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("%w: illegal path in archive: %s", ErrRetrieval, entry.Name)
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if !entry.Mode().IsRegular() {
			continue
		}

		n, err := extractFile(entry, target, maxExtractedBytes-total)
		if err != nil {
			return err
		}
		total += n
	}
	return nil
}

func extractFile(entry *zip.File, target string, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}

	src, err := entry.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", ErrRetrieval, entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, io.LimitReader(src, budget+1))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("%w: extract %s: %v", ErrRetrieval, entry.Name, err)
	}
	if n > budget {
		return n, fmt.Errorf("%w: archive expands beyond %d bytes", ErrRetrieval, int64(maxExtractedBytes))
	}
	return n, nil
}
