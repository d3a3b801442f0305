package services

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMoodClassifier(t *testing.T, embedder *stubEmbedder) *MoodClassifier {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	mc, err := NewMoodClassifier(context.Background(), embedder, logger)
	require.NoError(t, err)
	return mc
}

func TestMoodClassifier_Classify(t *testing.T) {
	mc := newTestMoodClassifier(t, &stubEmbedder{})
	ctx := context.Background()

	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{"party query", "snacks for a party with friends", "party"},
		{"healthy query", "healthy fresh salad please", "healthy"},
		{"premium query", "fancy fine dining tonight", "premium"},
		{"comfort query", "tired after a rough day, comfort food", "comfort"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mood, confidence, _ := mc.Classify(ctx, tt.query)
			assert.Equal(t, tt.expected, mood)
			assert.GreaterOrEqual(t, confidence, 0.0)
			assert.LessOrEqual(t, confidence, 1.0)
		})
	}
}

func TestMoodClassifier_Deterministic(t *testing.T) {
	mc := newTestMoodClassifier(t, &stubEmbedder{})
	ctx := context.Background()

	mood1, score1, intents1 := mc.Classify(ctx, "cheap spicy street food for a party")
	mood2, score2, intents2 := mc.Classify(ctx, "cheap spicy street food for a party")

	assert.Equal(t, mood1, mood2)
	assert.Equal(t, score1, score2)
	assert.Equal(t, intents1, intents2)
}

func TestMoodClassifier_DegradesOnEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{}
	mc := newTestMoodClassifier(t, embedder)

	// Phrase embeddings were built at construction; only the per-query
	// embedding fails now.
	embedder.fail = true

	mood, confidence, intents := mc.Classify(context.Background(), "spicy party snacks")
	assert.Equal(t, "comfort", mood)
	assert.Equal(t, 0.0, confidence)
	assert.True(t, intents["spicy"], "intent extraction should survive embedding failure")
}

func TestMoodClassifier_StartupFailsWithoutEmbedder(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	_, err := NewMoodClassifier(context.Background(), &stubEmbedder{fail: true}, logger)
	assert.Error(t, err)
}

func TestExtractIntents(t *testing.T) {
	mc := newTestMoodClassifier(t, &stubEmbedder{})

	tests := []struct {
		name     string
		text     string
		expected map[string]bool
	}{
		{
			name: "cheesy and cheap",
			text: "cheap cheesy pizza",
			expected: map[string]bool{
				"cheap": true, "cheesy": true, "expensive": false,
				"spicy": false, "sweet": false, "light": false,
			},
		},
		{
			name: "negation overrides expensive",
			text: "not expensive biryani",
			expected: map[string]bool{
				"cheap": true, "cheesy": false, "expensive": false,
				"spicy": false, "sweet": false, "light": false,
			},
		},
		{
			name: "light intent",
			text: "something light and refreshing",
			expected: map[string]bool{
				"cheap": false, "cheesy": false, "expensive": false,
				"spicy": false, "sweet": false, "light": true,
			},
		},
		{
			name: "whole word matching only",
			text: "the cheapest hottest place",
			expected: map[string]bool{
				"cheap": false, "cheesy": false, "expensive": false,
				"spicy": false, "sweet": false, "light": false,
			},
		},
		{
			name: "case insensitive",
			text: "SPICY Masala and SWEET dessert",
			expected: map[string]bool{
				"cheap": false, "cheesy": false, "expensive": false,
				"spicy": true, "sweet": true, "light": false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mc.ExtractIntents(tt.text))
		})
	}
}
