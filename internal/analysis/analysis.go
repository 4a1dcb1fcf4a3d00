// Package analysis declares the downstream consumers of scraped reviews.
// The crawler produces batches for them; classification and embedding
// themselves live behind these interfaces.
package analysis

import (
	"context"

	"reviewcrawler/pkg/types"
)

// Label is a sentiment or topic assignment for one review text.
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Classifier assigns a label per input text, index-aligned with the input.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]Label, error)
}

// Embedder produces one vector per input text, index-aligned with the input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Batcher chunks reviews into fixed-size batches, preserving order. The
// final batch may be short.
type Batcher struct {
	size int
}

// NewBatcher builds a batcher. Sizes below 1 fall back to 20.
func NewBatcher(size int) *Batcher {
	if size < 1 {
		size = 20
	}
	return &Batcher{size: size}
}

// Split partitions reviews into batches of at most the configured size.
func (b *Batcher) Split(reviews []types.Review) [][]types.Review {
	if len(reviews) == 0 {
		return nil
	}
	batches := make([][]types.Review, 0, (len(reviews)+b.size-1)/b.size)
	for start := 0; start < len(reviews); start += b.size {
		end := start + b.size
		if end > len(reviews) {
			end = len(reviews)
		}
		batches = append(batches, reviews[start:end])
	}
	return batches
}

// Texts extracts the review bodies from a batch, index-aligned, for handing
// to a Classifier or Embedder.
func Texts(reviews []types.Review) []string {
	texts := make([]string, len(reviews))
	for i, review := range reviews {
		texts[i] = review.Text
	}
	return texts
}
