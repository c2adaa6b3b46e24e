package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestChromemRetrieverAddAndSearch(t *testing.T) {
	r, err := NewChromemRetriever(t.TempDir())
	if err != nil {
		t.Fatalf("NewChromemRetriever() error = %v", err)
	}
	defer r.Close()

	ctx := context.Background()
	if err := r.Add(ctx, "Engineering entrance exams focus on physics and math.", "exams.md"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := r.Add(ctx, "Commerce streams cover accounting and business studies.", "streams.md"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := r.Search(ctx, "engineering entrance exams physics", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Search() returned %d passages, want 1", len(got))
	}
	if got[0].Source != "exams.md" {
		t.Fatalf("top passage source = %q, want exams.md", got[0].Source)
	}
}

func TestChromemRetrieverEmptyStore(t *testing.T) {
	r, err := NewChromemRetriever(t.TempDir())
	if err != nil {
		t.Fatalf("NewChromemRetriever() error = %v", err)
	}
	defer r.Close()

	got, err := r.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("empty store returned %d passages", len(got))
	}
}

func TestChromemRetrieverLoadDir(t *testing.T) {
	dir := t.TempDir()
	content := "Law careers need strong reading skills.\n\nMedicine needs long clinical training.\n"
	if err := os.WriteFile(filepath.Join(dir, "careers.md"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	r, err := NewChromemRetriever(t.TempDir())
	if err != nil {
		t.Fatalf("NewChromemRetriever() error = %v", err)
	}
	defer r.Close()

	if err := r.LoadDir(context.Background(), dir); err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	got, err := r.Search(context.Background(), "law careers reading", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("seeded store returned nothing")
	}
}
