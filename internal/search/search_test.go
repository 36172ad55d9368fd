package search

import (
	"testing"

	"github.com/mohammad-safakhou/newsbot/models"
)

func analysis(id, url, title, summary string) models.Analysis {
	return models.Analysis{
		ID:      id,
		Article: models.Article{URL: url, Title: title},
		Summary: models.Summary{Summary: summary},
	}
}

func TestIndexAddAndSearch(t *testing.T) {
	idx, err := NewIndex()
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	docs := []models.Analysis{
		analysis("1", "https://a.example", "Wildfire spreads north", "Crews battled a fast moving wildfire."),
		analysis("2", "https://b.example", "Markets rally on earnings", "Stocks rose after strong quarterly results."),
	}
	for _, d := range docs {
		if err := idx.Add(d); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	hits, err := idx.Search("wildfire", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "1" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].URL != "https://a.example" || hits[0].Title != "Wildfire spreads north" {
		t.Fatalf("hit missing metadata: %+v", hits[0])
	}

	hits, err = idx.Search("stocks earnings", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 || hits[0].ID != "2" {
		t.Fatalf("expected market doc first: %+v", hits)
	}
}

func TestIndexReplacesDocument(t *testing.T) {
	idx, err := NewIndex()
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if err := idx.Add(analysis("1", "https://a.example", "Old title", "old")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(analysis("1", "https://a.example", "Completely new headline", "new")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := idx.Search("headline", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Title != "Completely new headline" {
		t.Fatalf("document not replaced: %+v", hits)
	}
}

func TestNilIndexIsNoop(t *testing.T) {
	var idx *Index
	if err := idx.Add(analysis("1", "u", "t", "s")); err != nil {
		t.Fatalf("nil Add: %v", err)
	}
	hits, err := idx.Search("anything", 5)
	if err != nil || hits != nil {
		t.Fatalf("nil Search should return nothing, got %v, %v", hits, err)
	}
}
