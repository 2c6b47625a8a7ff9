// Package wpmeta reads WordPress package metadata: the comment header of a
// plugin's main PHP file or a theme's style.css, and the sections of a readme.
package wpmeta

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// headerScanBytes matches how much of a file WordPress reads when looking for
// header fields.
const headerScanBytes = 8 * 1024

var (
	headerLine = regexp.MustCompile(`^(?:[ \t]*<\?php)?[\s/*#@]*([A-Za-z][A-Za-z0-9 _-]*?)[ \t]*:[ \t]*(.*)$`)

	readmeCandidates = []string{"readme.txt", "README.txt", "readme.md", "README.md"}
)

// Reader implements main file discovery, header parsing and readme splitting.
type Reader struct{}

// NewReader returns a metadata reader.
func NewReader() *Reader {
	return &Reader{}
}

// FindMainFile returns the path of the package's main file: the first top-level
// PHP file carrying a "Plugin Name:" header, or style.css with a "Theme Name:"
// header. It returns "" when neither exists.
func (r *Reader) FindMainFile(dir string) (string, error) {
	phpFiles, err := filepath.Glob(filepath.Join(dir, "*.php"))
	if err != nil {
		return "", err
	}
	sort.Strings(phpFiles)

	for _, path := range phpFiles {
		fields, err := r.ParseHeaderFields(path)
		if err != nil {
			continue
		}
		if fields["plugin name"] != "" {
			return path, nil
		}
	}

	style := filepath.Join(dir, "style.css")
	fields, err := r.ParseHeaderFields(style)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	if fields["theme name"] != "" {
		return style, nil
	}
	return "", nil
}

// ParseHeaderFields reads "Key: value" pairs from the start of a file. Keys are
// lower-cased; the first occurrence of a key wins.
func (r *Reader) ParseHeaderFields(path string) (map[string]string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	head, err := io.ReadAll(io.LimitReader(file, headerScanBytes))
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(head))
	for scanner.Scan() {
		m := headerLine.FindStringSubmatch(scanner.Text())
		if len(m) < 3 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(m[1]))
		value := cleanHeaderValue(m[2])
		if key == "" || value == "" {
			continue
		}
		if _, exists := fields[key]; !exists {
			fields[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return fields, nil
}

// ParseReadme splits the first readme found in dir into sections keyed by
// lower-cased heading. A package without a readme yields no sections.
func (r *Reader) ParseReadme(dir string) (map[string]string, error) {
	for _, name := range readmeCandidates {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		return SplitSections(string(data)), nil
	}
	return map[string]string{}, nil
}

// SplitSections splits readme text on WordPress "== Heading ==" lines and
// Markdown "#"/"##" headings. The plugin title line ("=== Name ===") and
// deeper headings ("= Sub =", "###") stay in the body of the current section.
func SplitSections(text string) map[string]string {
	sections := map[string]string{}
	var current string
	var body []string

	flush := func() {
		if current == "" {
			return
		}
		if _, exists := sections[current]; !exists {
			sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if heading, ok := sectionHeading(line); ok {
			flush()
			current = strings.ToLower(heading)
			body = nil
			continue
		}
		body = append(body, line)
	}
	flush()

	return sections
}

func sectionHeading(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "==") && !strings.HasPrefix(trimmed, "==="):
		name := strings.TrimSpace(strings.Trim(trimmed, "="))
		return name, name != ""
	case strings.HasPrefix(trimmed, "## ") || strings.HasPrefix(trimmed, "# "):
		name := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		return name, name != ""
	}
	return "", false
}

func cleanHeaderValue(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimSuffix(value, "*/")
	value = strings.TrimSuffix(value, "?>")
	return strings.TrimSpace(value)
}
