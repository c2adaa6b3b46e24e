package knowledge

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

const (
	defaultCollection = "career_knowledge"
	embeddingDim      = 256
)

// ChromemRetriever serves searches from an embedded chromem-go vector
// database persisted on disk. No external service is required, which keeps
// the decision core runnable (and testable) without infrastructure.
type ChromemRetriever struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemRetriever opens (or creates) the persistent store at path.
func NewChromemRetriever(path string) (*ChromemRetriever, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("knowledge store path is required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create knowledge dir %s: %w", path, err)
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	collection, err := db.GetOrCreateCollection(defaultCollection, nil, hashEmbedding)
	if err != nil {
		return nil, fmt.Errorf("open knowledge collection: %w", err)
	}
	return &ChromemRetriever{db: db, collection: collection}, nil
}

func (r *ChromemRetriever) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		k = 4
	}
	count := r.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := r.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query knowledge: %w", err)
	}

	passages := make([]Passage, 0, len(results))
	for _, res := range results {
		passages = append(passages, Passage{
			Content: res.Content,
			Score:   float64(res.Similarity),
			Source:  res.Metadata["source"],
		})
	}
	return passages, nil
}

// Add indexes one passage. Used by the directory loader and by tests.
func (r *ChromemRetriever) Add(ctx context.Context, content, source string) error {
	doc := chromem.Document{
		ID:       uuid.NewString(),
		Content:  content,
		Metadata: map[string]string{"source": source},
	}
	if err := r.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("add knowledge document: %w", err)
	}
	return nil
}

// LoadDir seeds the store from .txt/.md files, one passage per blank-line
// separated block. Re-running over the same content grows the collection;
// curation of the corpus is out of scope here.
func (r *ChromemRetriever) LoadDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read knowledge dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read knowledge file %s: %w", entry.Name(), err)
		}
		for _, block := range strings.Split(string(raw), "\n\n") {
			block = strings.TrimSpace(block)
			if block == "" {
				continue
			}
			if err := r.Add(ctx, block, entry.Name()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *ChromemRetriever) Close() error { return nil }

// hashEmbedding is a deterministic bag-of-words embedding: each token is
// hashed into a fixed-size vector which is then L2-normalized. It trades
// semantic nuance for zero dependencies and reproducible tests; swap in a
// real embedder via chromem's EmbeddingFunc when one is available.
func hashEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,!?\"'()")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%embeddingDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
