package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/deltaforge/smartdine/internal/config"
	"github.com/deltaforge/smartdine/pkg/models"
)

// Explainer produces the natural-language line attached to each result. It
// never fails; the worst case is a templated fallback, and callers must
// accept an empty string as valid.
type Explainer interface {
	Explain(ctx context.Context, item *models.MenuItem, city, mood string, weather *models.WeatherInfo, surprise bool) string
}

var explanationStyles = []string{
	"friendly foodie tone",
	"warm and comforting",
	"casual and conversational",
	"short and energetic",
	"descriptive and thoughtful",
}

const explainerSystemPrompt = "You are a food recommendation assistant like Swiggy or Zomato.\n" +
	"Every explanation must be unique.\n" +
	"Avoid generic phrases like 'solid pick', 'fits the moment', or 'quietly delivers'.\n" +
	"Mention at least one concrete attribute such as flavor, spice level, texture, or richness.\n" +
	"Sound natural and human."

// ExplanationService wraps an optional OpenAI-compatible chat endpoint with
// deterministic template fallbacks.
type ExplanationService struct {
	client *llmClient // nil when the remote explainer is disabled
	rng    Rand
	logger *logrus.Logger
}

func NewExplanationService(cfg config.ExplainerConfig, rng Rand, logger *logrus.Logger) *ExplanationService {
	es := &ExplanationService{rng: rng, logger: logger}
	if cfg.Enabled && cfg.APIKey != "" {
		es.client = newLLMClient(cfg)
	}
	return es
}

// Explain generates the line for one item. Weather is nil for every item
// except the designated weather pick, so only one result per response talks
// about the weather.
func (es *ExplanationService) Explain(ctx context.Context, item *models.MenuItem, city, mood string, weather *models.WeatherInfo, surprise bool) string {
	displayCity := cases.Title(language.English).String(city)

	if es.client != nil {
		text, err := es.client.chat(ctx, explainerSystemPrompt, es.buildPrompt(item, displayCity, mood, weather, surprise), es.rng)
		if err == nil {
			return strings.TrimSpace(text)
		}
		es.logger.WithError(err).Debug("Remote explainer failed, using template fallback")
	}

	return es.fallback(item, displayCity, weather)
}

func (es *ExplanationService) buildPrompt(item *models.MenuItem, city, mood string, weather *models.WeatherInfo, surprise bool) string {
	style := explanationStyles[es.rng.Intn(len(explanationStyles))]

	price := "budget-friendly"
	if item.IsExpensive {
		price = "premium"
	}
	if mood == "" {
		mood = "unspecified"
	}

	var weatherInstruction string
	if weather != nil {
		weatherInstruction = fmt.Sprintf(
			"- If relevant, relate the dish to the %s weather.\n- Do NOT force weather if it sounds unnatural.\n",
			weather.Category,
		)
	}

	return fmt.Sprintf(`Write a %s explanation in 1-2 sentences.

Dish: %s
Restaurant: %s
City: %s
Cuisine: %s
Rating: %.1f/5
Price: %s
Mood: %s
Surprise mode: %t

Guidelines:
%s- Do not reuse sentence patterns
- Avoid vague wording
- Focus on why someone would enjoy this dish
`,
		style, item.ItemName, item.RestaurantName, city, item.Cuisine,
		item.AverageRating, price, mood, surprise, weatherInstruction)
}

// fallback picks one of a fixed set of deterministic templates, weather
// flavored when weather context was supplied.
func (es *ExplanationService) fallback(item *models.MenuItem, city string, weather *models.WeatherInfo) string {
	dish := item.ItemName
	if dish == "" {
		dish = "this dish"
	}
	restaurant := item.RestaurantName
	if restaurant == "" {
		restaurant = "this restaurant"
	}

	if weather != nil {
		category := weather.Category
		templates := []string{
			fmt.Sprintf("In %s's %s weather, the flavors of %s at %s feel especially comforting.", city, category, dish, restaurant),
			fmt.Sprintf("The %s from %s works well right now, particularly with the %s conditions.", strings.ToLower(dish), restaurant, category),
			fmt.Sprintf("%s at %s feels like a natural choice given the %s weather in %s.", dish, restaurant, category, city),
		}
		return templates[es.rng.Intn(len(templates))]
	}

	templates := []string{
		fmt.Sprintf("%s from %s stands out for its flavors and is an easy choice if you're deciding quickly.", dish, restaurant),
		fmt.Sprintf("If you're in the mood for something familiar, %s does this dish particularly well.", restaurant),
		"This dish offers a satisfying balance of taste and comfort without overthinking the choice.",
	}
	return templates[es.rng.Intn(len(templates))]
}

// llmClient is a minimal OpenAI-compatible chat client with a bounded
// timeout.
type llmClient struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func newLLMClient(cfg config.ExplainerConfig) *llmClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &llmClient{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *llmClient) chat(ctx context.Context, system, user string, rng Rand) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.9 + rng.Float64()*0.2,
		MaxTokens:   90,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat api error (status %d): %s", resp.StatusCode, string(payload))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat api returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
