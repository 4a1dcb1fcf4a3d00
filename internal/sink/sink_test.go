package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reviewcrawler/internal/config"
	"reviewcrawler/pkg/types"
)

func TestJSONLinesFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.jsonl")
	out, err := New(config.OutputConfig{Path: path, Format: "jsonl"})
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	reviews := []types.Review{
		{Text: "first review", Rating: 4, HasRating: true, SourceDomain: "example.com", ScrapedAt: time.Now()},
		{Text: "second review", SourceDomain: "example.com"},
	}
	if err := out.Write(context.Background(), reviews); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	fh, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fh.Close()

	var lines int
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		var review types.Review
		if err := json.Unmarshal(scanner.Bytes(), &review); err != nil {
			t.Fatalf("line %d not valid JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("wrote %d lines, want 2", lines)
	}
}

func TestJSONLinesRespectsCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.jsonl")
	out, err := New(config.OutputConfig{Path: path})
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer out.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := out.Write(ctx, []types.Review{{Text: "never written"}}); err == nil {
		t.Error("expected context error")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(config.OutputConfig{Format: "xml"}); err == nil {
		t.Error("expected error for unsupported format")
	}
}
