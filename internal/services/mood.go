package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/deltaforge/smartdine/internal/ml"
)

// moodLabels fixes the classification order so ties and fallbacks are
// deterministic across calls.
var moodLabels = []string{"comfort", "party", "healthy", "premium"}

// fallbackMood is returned when the query cannot be embedded. Classification
// never errors; it degrades.
const fallbackMood = "comfort"

var moodPhrases = map[string][]string{
	"comfort": {
		"comfort food", "feeling low", "rough day",
		"tired", "need something filling", "home style",
	},
	"party": {
		"party", "snacks", "friends", "celebration",
		"fast food", "street food",
	},
	"healthy": {
		"healthy", "light food", "low calorie",
		"fresh", "diet", "salad",
	},
	"premium": {
		"luxury", "fine dining", "fancy",
		"premium", "expensive restaurant",
	},
}

var intentKeywords = map[string][]string{
	"cheap": {
		"cheap", "affordable", "budget",
		"not expensive", "low price",
	},
	"expensive": {
		"expensive", "premium", "costly", "luxury",
	},
	"cheesy": {
		"cheesy", "cheese", "creamy",
	},
	"spicy": {
		"spicy", "hot", "fiery", "masala",
	},
	"sweet": {
		"sweet", "dessert", "chocolate", "sugar",
	},
	"light": {
		"light", "refreshing", "not heavy",
	},
}

// negationPhrases force cheap=true, expensive=false after keyword matching.
var negationPhrases = []string{"not expensive", "not costly"}

// MoodClassifier maps query text to a mood label, a relative confidence, and
// independent intent flags. Example-phrase embeddings are computed once at
// construction.
type MoodClassifier struct {
	embedder ml.Embedder
	logger   *logrus.Logger

	moodEmbeddings map[string][][]float64
	intentPatterns map[string][]*regexp.Regexp
}

func NewMoodClassifier(ctx context.Context, embedder ml.Embedder, logger *logrus.Logger) (*MoodClassifier, error) {
	mc := &MoodClassifier{
		embedder:       embedder,
		logger:         logger,
		moodEmbeddings: make(map[string][][]float64, len(moodLabels)),
		intentPatterns: make(map[string][]*regexp.Regexp, len(intentKeywords)),
	}

	for _, mood := range moodLabels {
		phrases := moodPhrases[mood]
		embeddings, err := embedder.EmbedBatch(ctx, phrases)
		if err != nil {
			return nil, fmt.Errorf("failed to embed %s mood phrases: %w", mood, err)
		}
		mc.moodEmbeddings[mood] = embeddings
	}

	for intent, keywords := range intentKeywords {
		patterns := make([]*regexp.Regexp, len(keywords))
		for i, keyword := range keywords {
			patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
		}
		mc.intentPatterns[intent] = patterns
	}

	return mc, nil
}

// Classify returns (mood, confidence, intents) for a query. Pure function of
// its input: repeated calls with the same text return the same answer.
func (mc *MoodClassifier) Classify(ctx context.Context, query string) (string, float64, map[string]bool) {
	mood, confidence := mc.detectMood(ctx, query)
	intents := mc.ExtractIntents(query)
	return mood, confidence, intents
}

// detectMood embeds the query once and averages its similarity against each
// mood's example phrases. Confidence is min-max rescaled across the four
// candidate scores for this query — deliberately not a softmax, so the
// downstream score weights keep their calibration.
func (mc *MoodClassifier) detectMood(ctx context.Context, query string) (string, float64) {
	queryEmbedding, err := mc.embedder.EmbedText(ctx, query)
	if err != nil {
		mc.logger.WithError(err).Warn("Mood detection degraded: query embedding failed")
		return fallbackMood, 0
	}

	scores := make(map[string]float64, len(moodLabels))
	bestMood := moodLabels[0]
	for _, mood := range moodLabels {
		var total float64
		for _, phraseEmbedding := range mc.moodEmbeddings[mood] {
			total += cosineSimilarity(queryEmbedding, phraseEmbedding)
		}
		scores[mood] = total / float64(len(mc.moodEmbeddings[mood]))
		if scores[mood] > scores[bestMood] {
			bestMood = mood
		}
	}

	minScore, maxScore := scores[moodLabels[0]], scores[moodLabels[0]]
	for _, mood := range moodLabels[1:] {
		if scores[mood] < minScore {
			minScore = scores[mood]
		}
		if scores[mood] > maxScore {
			maxScore = scores[mood]
		}
	}

	confidence := (scores[bestMood] - minScore) / (maxScore - minScore + 1e-6)
	return bestMood, confidence
}

// ExtractIntents runs case-insensitive whole-word matching per intent. The
// flags are independent, not mutually exclusive. The negation check runs
// after keyword matching and overrides it.
func (mc *MoodClassifier) ExtractIntents(text string) map[string]bool {
	lower := strings.ToLower(text)

	intents := make(map[string]bool, len(mc.intentPatterns))
	for intent, patterns := range mc.intentPatterns {
		matched := false
		for _, pattern := range patterns {
			if pattern.MatchString(lower) {
				matched = true
				break
			}
		}
		intents[intent] = matched
	}

	for _, phrase := range negationPhrases {
		if strings.Contains(lower, phrase) {
			intents["cheap"] = true
			intents["expensive"] = false
			break
		}
	}

	return intents
}

func cosineSimilarity(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}
