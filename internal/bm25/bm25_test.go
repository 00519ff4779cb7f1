//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package bm25

import (
	"testing"
)

func storeDocs() []Document {
	return []Document{
		{ID: "users", Text: "users user_id first_name last_name email"},
		{ID: "orders", Text: "orders order_id user_id total_amount created_at"},
		{ID: "products", Text: "products product_id name price category_id"},
		{ID: "categories", Text: "categories category_id name"},
	}
}

func TestRanker_Rank(t *testing.T) {
	r := NewRanker(storeDocs())

	results := r.Rank("Which products are in each category?")
	if len(results) != 4 {
		t.Fatalf("expected every document to be ranked, got %d", len(results))
	}
	if results[0].ID != "categories" && results[0].ID != "products" {
		t.Errorf("expected a product or category table first, got %s", results[0].ID)
	}
	for _, res := range results[:2] {
		if res.Score <= 0 {
			t.Errorf("expected %s to match, score %f", res.ID, res.Score)
		}
	}
	for _, res := range results[2:] {
		if res.Score != 0 {
			t.Errorf("expected %s not to match, score %f", res.ID, res.Score)
		}
	}
}

func TestRanker_TiesKeepIndexOrder(t *testing.T) {
	r := NewRanker(storeDocs())

	results := r.Rank("weather forecast")
	want := []string{"users", "orders", "products", "categories"}
	for i, res := range results {
		if res.ID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, res.ID, want[i])
		}
	}
}

func TestRanker_RareTermsWeighMore(t *testing.T) {
	r := NewRanker(storeDocs())

	// "user" appears in two documents, "email" in one.
	results := r.Rank("user email")
	if results[0].ID != "users" {
		t.Errorf("expected users first, got %s", results[0].ID)
	}
	if results[1].ID != "orders" || results[1].Score >= results[0].Score {
		t.Errorf("expected orders second with a lower score, got %+v", results[1])
	}
}

func TestRanker_IDF(t *testing.T) {
	docs := make([]Document, 100)
	for i := range docs {
		docs[i] = Document{ID: "d", Text: "filler"}
	}
	r := NewRanker(docs)

	// Lucene-style IDF: log(1 + (N - df + 0.5) / (df + 0.5))
	tests := []struct {
		name    string
		docFreq int
		wantGT  float64
		wantLT  float64
	}{
		{"rare term", 1, 4.0, 4.5},        // log(1 + 99.5/1.5) ≈ 4.21
		{"common term", 50, 0.5, 0.8},     // log(2) ≈ 0.69
		{"very common term", 99, 0, 0.02}, // log(1 + 1.5/99.5) ≈ 0.015
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idf := r.idf(tt.docFreq)
			if idf <= tt.wantGT || idf >= tt.wantLT {
				t.Errorf("idf(%d) = %f, want between %f and %f",
					tt.docFreq, idf, tt.wantGT, tt.wantLT)
			}
		})
	}

	if r.idf(0) != 0 {
		t.Error("unseen terms should not contribute")
	}
}

func TestRanker_Empty(t *testing.T) {
	r := NewRanker(nil)
	if r.Len() != 0 {
		t.Errorf("Len() = %d", r.Len())
	}
	if got := r.Rank("anything"); len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}
}

func TestNewRankerWithParams(t *testing.T) {
	r := NewRankerWithParams(storeDocs(), 1.5, 0.5)
	if r.k1 != 1.5 || r.b != 0.5 {
		t.Errorf("unexpected parameters k1=%f b=%f", r.k1, r.b)
	}
}
