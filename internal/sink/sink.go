// Package sink delivers normalized reviews to their output destination.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"reviewcrawler/internal/config"
	"reviewcrawler/pkg/types"
)

// Sink receives batches of normalized reviews.
type Sink interface {
	Write(ctx context.Context, reviews []types.Review) error
	Close() error
}

// New builds a sink from configuration. The path "-" means stdout.
func New(cfg config.OutputConfig) (Sink, error) {
	switch cfg.Format {
	case "jsonl", "":
		return newJSONLines(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported output format %q", cfg.Format)
	}
}

// JSONLines writes one review per line as a JSON object.
type JSONLines struct {
	closer io.Closer
	enc    *json.Encoder
}

func newJSONLines(path string) (*JSONLines, error) {
	if path == "" || path == "-" {
		return &JSONLines{enc: json.NewEncoder(os.Stdout)}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", path, err)
	}
	return &JSONLines{closer: f, enc: json.NewEncoder(f)}, nil
}

// Write appends each review as one JSON line. Writes are not atomic across
// the batch; a failed write may leave a partial batch behind.
func (s *JSONLines) Write(ctx context.Context, reviews []types.Review) error {
	for _, review := range reviews {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(review); err != nil {
			return fmt.Errorf("encode review: %w", err)
		}
	}
	return nil
}

// Close releases the underlying file, if any. Closing a stdout sink is a
// no-op.
func (s *JSONLines) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
