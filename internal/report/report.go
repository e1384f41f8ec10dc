package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"litindex/internal/pipeline"
)

// Compressed reports whether path names a zstd report.
func Compressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zst")
}

// Write stores summary as indented JSON, zstd-compressed when path ends in
// .zst. The file is written to a temporary name and renamed into place.
func Write(path string, summary pipeline.RunSummary) error {
	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := encode(f, raw, Compressed(path)); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

func encode(w io.Writer, raw []byte, compress bool) error {
	if !compress {
		if _, err := w.Write(raw); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		return nil
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if _, err := enc.Write(raw); err != nil {
		_ = enc.Close()
		return fmt.Errorf("compress report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush zstd: %w", err)
	}
	return nil
}

func Read(path string) (pipeline.RunSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return pipeline.RunSummary{}, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if Compressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return pipeline.RunSummary{}, fmt.Errorf("create zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	var summary pipeline.RunSummary
	if err := json.NewDecoder(r).Decode(&summary); err != nil {
		return pipeline.RunSummary{}, fmt.Errorf("decode report: %w", err)
	}
	return summary, nil
}
