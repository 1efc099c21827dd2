package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildAuditArchivePath lays out archive keys by pipeline mode and UTC date so
// batches stay listable per day:
//
//	chat-audit/mode=<mode>/date=YYYY-MM-DD/batch-<batchID>.json
func BuildAuditArchivePath(mode string, archivedAt time.Time, batchID string) (string, error) {
	if err := validatePathComponent(mode, "mode"); err != nil {
		return "", err
	}
	if err := validatePathComponent(batchID, "batch id"); err != nil {
		return "", err
	}

	ts := archivedAt.UTC()
	return path.Join(
		"chat-audit",
		fmt.Sprintf("mode=%s", mode),
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("batch-%s.json", batchID),
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
