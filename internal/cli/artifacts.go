package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/wp-secmeta/internal/detector"
)

var csvHeader = []string{"target", "detector", "severity", "summary", "primary_contact", "consistent", "passes", "issues"}

func writeArtifact(path, format string, results []detector.Result) error {
	if results == nil {
		results = []detector.Result{}
	}

	switch format {
	case "json":
		return writeJSONFile(path, results)
	case "csv":
		return writeCSVArtifact(path, results)
	default:
		return fmt.Errorf("unsupported format %s", format)
	}
}

func writeCSVArtifact(path string, results []detector.Result) error {
	if err := ensureOutputDir(filepath.Dir(path)); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		file.Close()
		return err
	}
	for _, res := range results {
		if err := w.Write(csvRow(res)); err != nil {
			file.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func csvRow(res detector.Result) []string {
	row := []string{res.Target, res.Detector, res.Severity, res.Summary, "", "", "", ""}
	if sec := res.Security; sec != nil {
		row[4] = sec.PrimaryContact
		row[5] = strconv.FormatBool(sec.Consistent)
		row[6] = strconv.FormatBool(sec.Passes)
		row[7] = strings.Join(sec.Issues, "; ")
	}
	return row
}
