package lsa_test

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"math"
	"testing"

	"github.com/JaimeStill/book-search/pkg/lsa"
)

var corpus = [][]string{
	{"whale", "sea", "ship", "ocean", "whale"},
	{"sea", "ocean", "ship", "sailor"},
	{"cake", "sugar", "flour", "bake"},
	{"sugar", "cake", "bake", "oven"},
}

func fit(t *testing.T) *lsa.Model {
	t.Helper()
	m, err := lsa.Fit(context.Background(), corpus, lsa.DefaultComponents)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	return m
}

func TestVocabulary(t *testing.T) {
	v := lsa.NewVocabulary([][]string{{"b", "a"}, {"c", "a"}})

	if v.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", v.Len())
	}
	if i, ok := v.Index("a"); !ok || i != 0 {
		t.Errorf("Index(a) = %d, %v; want 0, true", i, ok)
	}
	if _, ok := v.Index("z"); ok {
		t.Error("Index(z) found an unknown term")
	}

	counts, total := v.Counts([]string{"c", "a", "c", "z"})
	if total != 3 {
		t.Errorf("Counts() total = %d, want 3", total)
	}
	want := []lsa.Entry{{Term: 0, Value: 1}, {Term: 2, Value: 2}}
	if len(counts) != len(want) {
		t.Fatalf("Counts() = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("Counts()[%d] = %v, want %v", i, counts[i], want[i])
		}
	}
}

func TestIDFAndWeight(t *testing.T) {
	cols := [][]lsa.Entry{
		{{Term: 0, Value: 2}, {Term: 1, Value: 1}},
		{{Term: 1, Value: 3}},
	}
	idf := lsa.IDF(cols, 2)

	if want := math.Log10(2.0 / 2.0); idf[0] != want {
		t.Errorf("idf[0] = %v, want %v", idf[0], want)
	}
	if want := math.Log10(2.0 / 3.0); idf[1] != want {
		t.Errorf("idf[1] = %v, want %v", idf[1], want)
	}

	col := lsa.Weight([]lsa.Entry{{Term: 1, Value: 3}}, 3, idf)
	if col[0].Value != idf[1] {
		t.Errorf("Weight() = %v, want %v", col[0].Value, idf[1])
	}

	zero := lsa.Weight([]lsa.Entry{{Term: 1, Value: 2}}, 0, idf)
	if zero[0].Value != 2*idf[1] {
		t.Errorf("Weight(length 0) = %v, want %v", zero[0].Value, 2*idf[1])
	}
}

func TestFit(t *testing.T) {
	m := fit(t)

	if m.Docs != len(corpus) {
		t.Errorf("Docs = %d, want %d", m.Docs, len(corpus))
	}
	if m.K() < 1 || m.K() > len(corpus) {
		t.Errorf("K() = %d, want clamped to [1, %d]", m.K(), len(corpus))
	}
	if m.VocabularySize() != 10 {
		t.Errorf("VocabularySize() = %d, want 10", m.VocabularySize())
	}
	for i := 1; i < len(m.Sigma); i++ {
		if m.Sigma[i] > m.Sigma[i-1] {
			t.Errorf("Sigma not descending: %v", m.Sigma)
		}
	}
}

func TestFit_Empty(t *testing.T) {
	if _, err := lsa.Fit(context.Background(), nil, 10); !errors.Is(err, lsa.ErrEmptyCorpus) {
		t.Errorf("Fit(nil) error = %v, want ErrEmptyCorpus", err)
	}
}

func TestFit_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := lsa.Fit(ctx, corpus, 2); !errors.Is(err, context.Canceled) {
		t.Errorf("Fit() error = %v, want context.Canceled", err)
	}
}

func TestSimilar(t *testing.T) {
	m := fit(t)

	tests := []struct {
		doc  int
		want int
	}{
		{0, 1},
		{1, 0},
		{2, 3},
		{3, 2},
	}

	for _, tt := range tests {
		got, err := m.Similar(tt.doc, 1)
		if err != nil {
			t.Fatalf("Similar(%d) error = %v", tt.doc, err)
		}
		if len(got) != 1 || got[0].Index != tt.want {
			t.Errorf("Similar(%d) = %v, want doc %d", tt.doc, got, tt.want)
		}
	}
}

func TestSimilar_ExcludesSelf(t *testing.T) {
	m := fit(t)

	got, err := m.Similar(0, 10)
	if err != nil {
		t.Fatalf("Similar() error = %v", err)
	}
	if len(got) != len(corpus)-1 {
		t.Errorf("Similar() returned %d results, want %d", len(got), len(corpus)-1)
	}
	for _, s := range got {
		if s.Index == 0 {
			t.Error("Similar() returned the document itself")
		}
	}
}

func TestSimilar_OutOfRange(t *testing.T) {
	m := fit(t)

	for _, doc := range []int{-1, len(corpus)} {
		if _, err := m.Similar(doc, 1); !errors.Is(err, lsa.ErrUnknownDoc) {
			t.Errorf("Similar(%d) error = %v, want ErrUnknownDoc", doc, err)
		}
	}
}

func TestQuery(t *testing.T) {
	m := fit(t)

	got := m.Query([]string{"cake", "oven"}, 2)
	if len(got) != 2 {
		t.Fatalf("Query() = %v, want 2 results", got)
	}
	if got[0].Index != 3 || got[1].Index != 2 {
		t.Errorf("Query() order = [%d %d], want [3 2]", got[0].Index, got[1].Index)
	}
}

func TestQuery_NoKnownTerms(t *testing.T) {
	m := fit(t)

	for _, q := range [][]string{nil, {"zebra"}} {
		if got := m.Query(q, 5); len(got) != 0 {
			t.Errorf("Query(%v) = %v, want empty", q, got)
		}
	}
}

func TestQuery_AfterDecode(t *testing.T) {
	m := fit(t)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded lsa.Model
	if err := gob.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}

	got := decoded.Query([]string{"whale"}, 1)
	if len(got) != 1 || got[0].Index != 0 {
		t.Errorf("Query() on decoded model = %v, want doc 0", got)
	}
}
