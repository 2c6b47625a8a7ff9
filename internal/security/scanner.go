package security

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/example/wp-secmeta/internal/wpmeta"
)

// HeaderReader finds a package's main file and reads its comment header fields.
// FindMainFile returns an empty path when the package has no main file.
// Header keys are lower-case.
type HeaderReader interface {
	FindMainFile(dir string) (string, error)
	ParseHeaderFields(path string) (map[string]string, error)
}

// ReadmeReader splits a package readme into sections keyed by heading.
type ReadmeReader interface {
	ParseReadme(dir string) (map[string]string, error)
}

const (
	headerSecurityField = "security"
	readmeSecuritySect  = "security"
)

var (
	securityMDCandidates  = []string{"security.md", "SECURITY.md", filepath.Join(".github", "SECURITY.md")}
	securityTXTCandidates = []string{"security.txt", "SECURITY.txt", filepath.Join(".well-known", "security.txt")}
)

// Scanner checks a package directory for declared security contacts.
type Scanner struct {
	headers HeaderReader
	readme  ReadmeReader
}

// NewScanner builds a scanner around the given metadata readers.
func NewScanner(headers HeaderReader, readme ReadmeReader) *Scanner {
	return &Scanner{headers: headers, readme: readme}
}

// Scan scans dir with the default WordPress metadata reader.
func Scan(dir string) (*Result, error) {
	reader := wpmeta.NewReader()
	return NewScanner(reader, reader).Scan(dir)
}

// Scan inspects the package rooted at dir. The only error it returns wraps
// ErrDirectoryNotFound; missing files and sections are reported in the Result.
func (s *Scanner) Scan(dir string) (*Result, error) {
	root, err := ResolveRoot(dir)
	if err != nil {
		return nil, err
	}

	f := findings{directory: root}
	s.extractHeader(root, &f)
	f.securityMDPath = extractPolicyFile(root, securityMDCandidates, SourceSecurityMD, ExtractContact, &f)
	f.securityTXTPath = extractPolicyFile(root, securityTXTCandidates, SourceSecurityTXT, ExtractSecurityTxtContact, &f)
	s.extractReadme(root, &f)

	return newResult(f), nil
}

func (s *Scanner) extractHeader(root string, f *findings) {
	if s.headers == nil {
		return
	}

	mainFile, err := s.headers.FindMainFile(root)
	if err != nil || mainFile == "" {
		return
	}
	f.mainFile = relativeTo(root, mainFile)

	fields, err := s.headers.ParseHeaderFields(mainFile)
	if err != nil {
		return
	}

	switch {
	case fields["plugin name"] != "":
		f.packageType = PackagePlugin
	case fields["theme name"] != "":
		f.packageType = PackageTheme
	}

	if obs, ok := newObservation(SourceHeader, fields[headerSecurityField]); ok {
		f.observations = append(f.observations, obs)
	}
}

// extractPolicyFile records the first candidate that exists and the contact the
// extract rule finds in it. It returns the file path relative to root, or "".
func extractPolicyFile(root string, candidates []string, source SourceKind, extract func(string) (string, bool), f *findings) string {
	for _, candidate := range candidates {
		path := filepath.Join(root, candidate)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		data, err := os.ReadFile(path)
		if err == nil {
			if contact, ok := extract(string(data)); ok {
				if obs, ok := newObservation(source, contact); ok {
					f.observations = append(f.observations, obs)
				}
			}
		}
		return filepath.ToSlash(candidate)
	}
	return ""
}

func (s *Scanner) extractReadme(root string, f *findings) {
	if s.readme == nil {
		return
	}

	sections, err := s.readme.ParseReadme(root)
	if err != nil {
		return
	}

	for name, body := range sections {
		if !strings.EqualFold(strings.TrimSpace(name), readmeSecuritySect) {
			continue
		}
		f.hasReadmeSecurity = true
		if contact, ok := ExtractContact(body); ok {
			if obs, ok := newObservation(SourceReadme, contact); ok {
				f.observations = append(f.observations, obs)
			}
		}
		return
	}
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
