//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package bm25 ranks short documents, such as table descriptions, against
// a natural-language question using BM25 scoring.
package bm25

import (
	"math"
	"sort"
)

// DefaultK1 is the default term frequency saturation parameter.
// Higher values mean term frequency has more impact.
const DefaultK1 = 1.2

// DefaultB is the default document length normalization parameter.
// B=0 means no normalization, B=1 means full normalization.
const DefaultB = 0.75

// Document is one item to rank.
type Document struct {
	ID   string
	Text string
}

// Result is a ranked document.
type Result struct {
	ID    string
	Score float64
}

type indexed struct {
	id    string
	terms map[string]int
	len   int
}

// Ranker scores a fixed set of documents. It is safe for concurrent use
// since it is never modified after construction.
type Ranker struct {
	k1, b     float64
	tokenizer *Tokenizer
	docs      []indexed
	docFreqs  map[string]int
	avgLen    float64
}

// NewRanker indexes docs with the default parameters.
func NewRanker(docs []Document) *Ranker {
	return NewRankerWithParams(docs, DefaultK1, DefaultB)
}

// NewRankerWithParams indexes docs with custom BM25 parameters.
func NewRankerWithParams(docs []Document, k1, b float64) *Ranker {
	r := &Ranker{
		k1:        k1,
		b:         b,
		tokenizer: NewTokenizer(),
		docs:      make([]indexed, 0, len(docs)),
		docFreqs:  make(map[string]int),
	}

	total := 0
	for _, d := range docs {
		terms := r.tokenizer.TokenFrequencies(d.Text)
		n := 0
		for term, freq := range terms {
			n += freq
			r.docFreqs[term]++
		}
		total += n
		r.docs = append(r.docs, indexed{id: d.ID, terms: terms, len: n})
	}
	if len(docs) > 0 {
		r.avgLen = float64(total) / float64(len(docs))
	}
	return r
}

// idf uses the Lucene variant, which is never negative:
//
//	IDF(t) = log(1 + (N - df(t) + 0.5) / (df(t) + 0.5))
func (r *Ranker) idf(docFreq int) float64 {
	if docFreq == 0 || len(r.docs) == 0 {
		return 0
	}
	n := float64(len(r.docs))
	df := float64(docFreq)
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// score returns the BM25 contribution of one term to one document.
func (r *Ranker) score(tf, docFreq, docLen int) float64 {
	if tf == 0 || r.avgLen == 0 {
		return 0
	}
	norm := 1 - r.b + r.b*(float64(docLen)/r.avgLen)
	f := float64(tf)
	return r.idf(docFreq) * (f * (r.k1 + 1)) / (f + r.k1*norm)
}

// Rank scores every document against query and returns all of them, best
// first. Documents with equal scores keep their indexing order.
func (r *Ranker) Rank(query string) []Result {
	q := r.tokenizer.TokenFrequencies(query)

	results := make([]Result, len(r.docs))
	for i, d := range r.docs {
		var s float64
		for term := range q {
			s += r.score(d.terms[term], r.docFreqs[term], d.len)
		}
		results[i] = Result{ID: d.id, Score: s}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// Len returns the number of indexed documents.
func (r *Ranker) Len() int {
	return len(r.docs)
}
