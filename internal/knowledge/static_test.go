package knowledge

import (
	"context"
	"testing"
)

func TestStaticRetrieverRanksByOverlap(t *testing.T) {
	r := NewStaticRetriever(
		Passage{Content: "Engineering careers involve designing and building systems.", Source: "careers.md"},
		Passage{Content: "Medicine requires years of study and clinical practice.", Source: "careers.md"},
		Passage{Content: "Commerce covers business, accounting and finance basics.", Source: "streams.md"},
	)
	defer r.Close()

	got, err := r.Search(context.Background(), "what do engineering careers involve", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("Search() returned nothing")
	}
	if got[0].Source != "careers.md" || got[0].Score <= 0 {
		t.Fatalf("top passage = %+v, want engineering passage with positive score", got[0])
	}
	if len(got) > 2 {
		t.Fatalf("Search() returned %d passages, want at most 2", len(got))
	}
}

func TestStaticRetrieverSkipsZeroOverlap(t *testing.T) {
	r := NewStaticRetriever(
		Passage{Content: "Medicine requires years of study.", Source: "careers.md"},
	)
	got, err := r.Search(context.Background(), "zzz qqq xxx", 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Search() returned %d passages for an unrelated query", len(got))
	}
}

func TestStaticRetrieverAdd(t *testing.T) {
	r := NewStaticRetriever()
	r.Add("Law careers need strong reading and argument skills.", "law.md")
	got, err := r.Search(context.Background(), "law careers", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].Source != "law.md" {
		t.Fatalf("Search() = %+v, want the added passage", got)
	}
}
