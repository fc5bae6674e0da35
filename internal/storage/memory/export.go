// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/gridclash/arena/internal/storage/memory/export/v1"
	"github.com/gridclash/arena/pkg/core"
)

// exportJSON writes the match journal to a (possibly gzipped) JSON file.
// Callers hold b.mu.
func (b *Backend) exportJSON() error {
	export := v1.Build(b.matchData())

	hostName := sanitizeFilename(b.match.HostName)
	timestamp := b.match.StartTime.Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s_%s.json", hostName, timestamp, shortID(b.match.ID))
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := WriteExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastExportMetadata = core.UploadMetadata{
		MatchID:       export.MatchID,
		HostName:      export.HostName,
		MatchDuration: export.Duration,
		PlayerCount:   len(export.Players),
	}
	if export.WinnerID != nil {
		b.lastExportMetadata.WinnerID = *export.WinnerID
	}
	return nil
}

// WriteExport encodes export to path, gzipping when compress is set.
func WriteExport(path string, export v1.Export, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if compress {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}
	if err := json.NewEncoder(w).Encode(export); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

func sanitizeFilename(s string) string {
	if s == "" {
		return "arena"
	}
	return strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_").Replace(s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "match"
	}
	return id
}
