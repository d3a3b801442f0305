package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltaforge/smartdine/internal/config"
	"github.com/deltaforge/smartdine/internal/messaging"
	"github.com/deltaforge/smartdine/internal/search"
	"github.com/deltaforge/smartdine/pkg/models"
)

type stubWeatherProvider struct {
	info *models.WeatherInfo
}

func (s *stubWeatherProvider) GetWeather(ctx context.Context, city string) *models.WeatherInfo {
	return s.info
}

// recordingExplainer counts how many explanations carried weather context.
type recordingExplainer struct {
	calls        int
	weatherCalls int
	lastSurprise bool
}

func (r *recordingExplainer) Explain(ctx context.Context, item *models.MenuItem, city, mood string, weather *models.WeatherInfo, surprise bool) string {
	r.calls++
	if weather != nil {
		r.weatherCalls++
	}
	r.lastSurprise = surprise
	return "worth a try"
}

func (r *recordingExplainer) reset() {
	r.calls = 0
	r.weatherCalls = 0
	r.lastSurprise = false
}

func chennaiItems() []models.MenuItem {
	cuisines := []string{"Pizza", "Italian", "North Indian", "Chinese"}
	items := make([]models.MenuItem, 0, 12)
	for i := 0; i < 11; i++ {
		items = append(items, models.MenuItem{
			ItemName:             fmt.Sprintf("Dish %02d", i),
			RestaurantName:       fmt.Sprintf("Kitchen %02d", i),
			Cuisine:              cuisines[i%len(cuisines)],
			City:                 "chennai",
			AverageRating:        4.2 + 0.05*float64(i%5),
			RestaurantPopularity: float64(100 * i),
			IsBestseller:         i%3 == 0,
			EmbeddingText:        fmt.Sprintf("dish %02d menu text", i),
		})
	}
	items = append(items, models.MenuItem{
		ItemName:      "Lowball Special",
		Cuisine:       "Pizza",
		City:          "chennai",
		AverageRating: 3.5,
		EmbeddingText: "lowball special menu text",
	})
	return items
}

type recommenderFixture struct {
	recommender *Recommender
	embedder    *stubEmbedder
	memory      *SessionMemory
	explainer   *recordingExplainer
}

func newRecommenderFixture(t *testing.T, weather *models.WeatherInfo) *recommenderFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	embedder := &stubEmbedder{}
	items := chennaiItems()
	vectors := make([][]float64, len(items))
	for i, item := range items {
		vectors[i] = stubVector(item.EmbeddingText)
	}
	shard, err := search.NewCityShard("chennai", embedder.Dimensions(), items, vectors)
	require.NoError(t, err)
	index := search.New(logger, shard)

	mood, err := NewMoodClassifier(context.Background(), embedder, logger)
	require.NoError(t, err)

	cfg := testRecommendationConfig()
	memory, err := NewSessionMemory(cfg.SessionCapacity, cfg.HistoryWindow)
	require.NoError(t, err)

	rng := NewRand(11)
	explainer := &recordingExplainer{}
	events := messaging.NewEventPublisher(config.KafkaConfig{}, logger)

	recommender := NewRecommender(
		cfg, index, embedder, mood, memory,
		NewScoringEngine(cfg, rng), NewSelectionPolicy(cfg, rng),
		&stubWeatherProvider{info: weather}, explainer, events, rng, logger,
	)

	return &recommenderFixture{
		recommender: recommender,
		embedder:    embedder,
		memory:      memory,
		explainer:   explainer,
	}
}

func TestRecommender_QueryFlow(t *testing.T) {
	weather := &models.WeatherInfo{City: "chennai", Condition: "Clear", Category: models.WeatherPleasant}
	f := newRecommenderFixture(t, weather)
	ctx := context.Background()

	req := &models.RecommendRequest{
		Query:     "snacks for a party with friends",
		City:      "  Chennai ",
		SessionID: "s1",
	}

	resp, err := f.recommender.Recommend(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "party", resp.Mood)
	require.NotNil(t, resp.MoodScore)
	assert.GreaterOrEqual(t, *resp.MoodScore, 0.0)
	assert.LessOrEqual(t, *resp.MoodScore, 1.0)
	assert.Equal(t, weather, resp.Weather)

	require.Len(t, resp.Results, 3)
	for _, result := range resp.Results {
		assert.GreaterOrEqual(t, result.AverageRating, 4.0, "quality filter must hold")
		assert.NotEqual(t, "Lowball Special", result.ItemName)
		assert.NotEmpty(t, result.Explanation)
	}

	assert.Equal(t, 3, f.explainer.calls)
	assert.Equal(t, 1, f.explainer.weatherCalls, "exactly one result carries weather context")

	rec := f.memory.Get("s1")
	assert.Equal(t, "chennai", rec.City, "city must be stored canonicalized")
	assert.Len(t, rec.Items, 3)
	assert.Equal(t, []string{"party"}, rec.Moods)
}

func TestRecommender_RepeatedQueriesFillTheWindow(t *testing.T) {
	f := newRecommenderFixture(t, &models.WeatherInfo{Category: models.WeatherPleasant})
	ctx := context.Background()

	req := &models.RecommendRequest{
		Query:     "snacks for a party with friends",
		City:      "chennai",
		SessionID: "s1",
	}

	_, err := f.recommender.Recommend(ctx, req)
	require.NoError(t, err)
	resp, err := f.recommender.Recommend(ctx, req)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)

	rec := f.memory.Get("s1")
	assert.Len(t, rec.Items, 5, "item history is capped at the window")
	assert.Equal(t, []string{"party", "party"}, rec.Moods)
}

func TestRecommender_UnknownCityIsEmptyNotError(t *testing.T) {
	f := newRecommenderFixture(t, &models.WeatherInfo{Category: models.WeatherPleasant})

	resp, err := f.recommender.Recommend(context.Background(), &models.RecommendRequest{
		Query: "snacks for a party",
		City:  "atlantis",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.MoodScore)
}

func TestRecommender_EmbeddingFailureDegrades(t *testing.T) {
	f := newRecommenderFixture(t, &models.WeatherInfo{Category: models.WeatherPleasant})
	f.embedder.fail = true

	resp, err := f.recommender.Recommend(context.Background(), &models.RecommendRequest{
		Query:     "snacks for a party",
		City:      "chennai",
		SessionID: "s1",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, "comfort", resp.Mood)
	require.NotNil(t, resp.MoodScore)
	assert.Equal(t, 0.0, *resp.MoodScore)
	assert.Empty(t, f.memory.Get("s1").Items, "failed serves must not touch memory")
}

func TestRecommender_Surprise(t *testing.T) {
	f := newRecommenderFixture(t, &models.WeatherInfo{Category: models.WeatherPleasant})
	ctx := context.Background()

	t.Run("explicit surprise flag", func(t *testing.T) {
		f.explainer.reset()
		resp, err := f.recommender.Recommend(ctx, &models.RecommendRequest{
			Query:     "snacks for a party",
			City:      "chennai",
			Surprise:  true,
			SessionID: "s2",
		})
		require.NoError(t, err)

		assert.Equal(t, "surprise", resp.Mood)
		assert.Nil(t, resp.MoodScore)
		require.Len(t, resp.Results, 1)
		assert.True(t, f.explainer.lastSurprise)
		assert.Empty(t, f.memory.Get("s2").Items, "surprise mode must not write memory")
	})

	t.Run("blank query implies surprise", func(t *testing.T) {
		resp, err := f.recommender.Recommend(ctx, &models.RecommendRequest{
			Query: "   ",
			City:  "chennai",
		})
		require.NoError(t, err)
		assert.Equal(t, "surprise", resp.Mood)
		require.Len(t, resp.Results, 1)
	})

	t.Run("unknown city", func(t *testing.T) {
		resp, err := f.recommender.Recommend(ctx, &models.RecommendRequest{
			City:     "atlantis",
			Surprise: true,
		})
		require.NoError(t, err)
		assert.Empty(t, resp.Results)
	})
}

func TestRecommender_SurpriseWeatherFilter(t *testing.T) {
	// Cold weather narrows the surprise pool to warming cuisines when any
	// exist; here only the tandoori item qualifies.
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	embedder := &stubEmbedder{}
	items := []models.MenuItem{
		{ItemName: "Caesar Salad", Cuisine: "Salads", City: "chennai", AverageRating: 4.5, EmbeddingText: "caesar salad"},
		{ItemName: "Tandoori Chicken", Cuisine: "Tandoor", City: "chennai", AverageRating: 4.5, EmbeddingText: "tandoori chicken"},
	}
	vectors := [][]float64{stubVector(items[0].EmbeddingText), stubVector(items[1].EmbeddingText)}
	shard, err := search.NewCityShard("chennai", embedder.Dimensions(), items, vectors)
	require.NoError(t, err)

	mood, err := NewMoodClassifier(context.Background(), embedder, logger)
	require.NoError(t, err)

	cfg := testRecommendationConfig()
	memory, err := NewSessionMemory(cfg.SessionCapacity, cfg.HistoryWindow)
	require.NoError(t, err)

	rng := NewRand(3)
	recommender := NewRecommender(
		cfg, search.New(logger, shard), embedder, mood, memory,
		NewScoringEngine(cfg, rng), NewSelectionPolicy(cfg, rng),
		&stubWeatherProvider{info: &models.WeatherInfo{Category: models.WeatherCold}},
		&recordingExplainer{}, messaging.NewEventPublisher(config.KafkaConfig{}, logger), rng, logger,
	)

	for i := 0; i < 10; i++ {
		resp, err := recommender.Recommend(context.Background(), &models.RecommendRequest{
			City:     "chennai",
			Surprise: true,
		})
		require.NoError(t, err)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "Tandoori Chicken", resp.Results[0].ItemName)
	}
}
