package knowledge

import (
	"context"
	"strings"
)

// NewRetriever creates a chromem-backed retriever when a store path is
// configured, seeding it from seedDir when given; otherwise an empty static
// retriever.
func NewRetriever(ctx context.Context, storePath, seedDir string) (Retriever, error) {
	if strings.TrimSpace(storePath) == "" {
		return NewStaticRetriever(), nil
	}
	r, err := NewChromemRetriever(storePath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(seedDir) != "" {
		if err := r.LoadDir(ctx, seedDir); err != nil {
			r.Close()
			return nil, err
		}
	}
	return r, nil
}
