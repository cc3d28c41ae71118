package database

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lysyi3m/eyes-on-docs/app/feed"
)

// SeedRecords imports update records from a JSON-lines file. Blank lines are
// skipped; a malformed line aborts the import with its line number.
func SeedRecords(ctx context.Context, repo *UpdateRepository, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	imported := 0
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var record feed.UpdateRecord
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return imported, fmt.Errorf("failed to parse seed line %d: %w", line, err)
		}

		if err := repo.UpsertRecord(ctx, record); err != nil {
			return imported, err
		}
		imported++
	}

	if err := scanner.Err(); err != nil {
		return imported, fmt.Errorf("failed to read seed file: %w", err)
	}

	slog.Debug("Seed file imported", "path", path, "records", imported)
	return imported, nil
}
