package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
)

// stubEmbedder maps known mood vocabulary onto orthogonal axes so queries
// classify predictably, and hashes everything else into a deterministic
// nonzero vector. Setting fail makes per-query embedding error while leaving
// already-built phrase embeddings intact.
type stubEmbedder struct {
	fail bool
}

var errEmbedderDown = errors.New("embedding server unavailable")

var stubAxes = [][]string{
	{"comfort", "tired", "filling", "home", "rough"},
	{"party", "snacks", "friends", "celebration", "street"},
	{"healthy", "calorie", "fresh", "diet", "salad"},
	{"luxury", "fine", "fancy", "premium", "expensive"},
}

func (s *stubEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	if s.fail {
		return nil, errEmbedderDown
	}
	return stubVector(text), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if s.fail {
		return nil, errEmbedderDown
	}
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = stubVector(text)
	}
	return vectors, nil
}

func (s *stubEmbedder) Dimensions() int {
	return len(stubAxes)
}

func stubVector(text string) []float64 {
	v := make([]float64, len(stubAxes))
	lower := strings.ToLower(text)

	matched := false
	for axis, words := range stubAxes {
		for _, word := range words {
			if strings.Contains(lower, word) {
				v[axis]++
				matched = true
			}
		}
	}
	if matched {
		return v
	}

	h := fnv.New32a()
	h.Write([]byte(lower))
	sum := h.Sum32()
	for i := range v {
		v[i] = float64((sum>>(8*i))&0xFF) + 1
	}
	return v
}
