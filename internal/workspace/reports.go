package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ReportPath names the report file for a run. Compressed reports get a .zst
// suffix.
func (p Paths) ReportPath(runID string, started time.Time, compressed bool) string {
	name := fmt.Sprintf("run-%s-%s.json", started.UTC().Format("20060102T150405Z"), sanitizeName(runID))
	if compressed {
		name += ".zst"
	}
	return filepath.Join(p.Reports, name)
}

// ListReports returns report files newest first.
func (p Paths) ListReports() ([]string, error) {
	entries, err := os.ReadDir(p.Reports)
	if err != nil {
		return nil, fmt.Errorf("read reports: %w", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "run-") {
			continue
		}
		if strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.zst") {
			out = append(out, filepath.Join(p.Reports, name))
		}
	}
	// Names start with a UTC timestamp, so lexical order is chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

func sanitizeName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "unnamed"
	}
	return strings.ReplaceAll(base, "..", "")
}
