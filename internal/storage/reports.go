package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReportStore archives sandbox benchmark reports on the local filesystem,
// under a dated directory structure: reports/2026/08/29/.
type ReportStore struct {
	outputDir string
}

// NewReportStore creates a report store rooted at outputDir.
func NewReportStore(outputDir string) *ReportStore {
	return &ReportStore{outputDir: outputDir}
}

// Save writes one report as indented JSON and returns its path. The name is
// sanitized and combined with a timestamp so runs never collide.
func (rs *ReportStore) Save(name string, report any) (string, error) {
	now := time.Now()
	dateDir := filepath.Join(rs.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %v", err)
	}

	filename := fmt.Sprintf("%s_%s.json", now.Format("20060102_150405"), sanitizeFilename(name))
	path := filepath.Join(dateDir, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save report: %v", err)
	}

	return path, nil
}

// sanitizeFilename strips path separators and characters that are invalid
// on common filesystems, and bounds the length.
func sanitizeFilename(name string) string {
	result := filepath.Base(name)
	for _, ch := range []string{"\\", ":", "*", "?", "\"", "<", ">", "|"} {
		result = strings.ReplaceAll(result, ch, "_")
	}
	if result == "" || result == "." {
		result = "report"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
