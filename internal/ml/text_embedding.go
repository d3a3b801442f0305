package ml

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/deltaforge/smartdine/internal/config"
	"github.com/deltaforge/smartdine/internal/metrics"
)

// Embedder turns text into a fixed-dimension vector. Vectors are returned
// un-normalized; consumers that need cosine-by-inner-product normalize them
// (the index does this at build and query time).
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimensions() int
}

// TextEmbeddingService calls the sidecar embedding server and caches results
// in redis keyed by a text digest. The redis client is optional; with a nil
// client every call goes to the sidecar.
type TextEmbeddingService struct {
	endpoint    string
	dimensions  int
	httpClient  *http.Client
	redisClient *redis.Client
	logger      *logrus.Logger

	cachePrefix string
	cacheTTL    time.Duration
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func NewTextEmbeddingService(cfg config.EmbeddingConfig, redisClient *redis.Client, logger *logrus.Logger) *TextEmbeddingService {
	if cfg.CachePrefix == "" {
		cfg.CachePrefix = "embed:text"
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &TextEmbeddingService{
		endpoint:    cfg.URL,
		dimensions:  cfg.Dimensions,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		redisClient: redisClient,
		logger:      logger,
		cachePrefix: cfg.CachePrefix,
		cacheTTL:    cfg.CacheTTL,
	}
}

func (tes *TextEmbeddingService) Dimensions() int {
	return tes.dimensions
}

// EmbedText embeds a single text, consulting the cache first.
func (tes *TextEmbeddingService) EmbedText(ctx context.Context, text string) ([]float64, error) {
	if embedding, found := tes.getCachedEmbedding(ctx, text); found {
		metrics.EmbeddingCacheHits.Inc()
		return embedding, nil
	}

	embeddings, err := tes.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	tes.cacheEmbedding(ctx, text, embeddings[0])
	return embeddings[0], nil
}

// EmbedBatch embeds a batch in one round trip. Used by the offline indexer;
// results are not cached since index builds touch each text once.
func (tes *TextEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tes.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tes.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding server error (status %d): %s", resp.StatusCode, string(payload))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}

	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding server returned %d vectors for %d texts", len(parsed.Embeddings), len(texts))
	}
	for _, embedding := range parsed.Embeddings {
		if len(embedding) != tes.dimensions {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", tes.dimensions, len(embedding))
		}
	}

	return parsed.Embeddings, nil
}

func (tes *TextEmbeddingService) cacheKey(text string) string {
	digest := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%x", tes.cachePrefix, digest[:16])
}

func (tes *TextEmbeddingService) getCachedEmbedding(ctx context.Context, text string) ([]float64, bool) {
	if tes.redisClient == nil {
		return nil, false
	}

	data, err := tes.redisClient.Get(ctx, tes.cacheKey(text)).Bytes()
	if err != nil {
		return nil, false
	}

	var embedding []float64
	if err := json.Unmarshal(data, &embedding); err != nil {
		tes.logger.WithError(err).Warn("Corrupt cached embedding, refetching")
		return nil, false
	}
	if len(embedding) != tes.dimensions {
		return nil, false
	}

	return embedding, true
}

func (tes *TextEmbeddingService) cacheEmbedding(ctx context.Context, text string, embedding []float64) {
	if tes.redisClient == nil {
		return
	}

	data, err := json.Marshal(embedding)
	if err != nil {
		return
	}

	if err := tes.redisClient.Set(ctx, tes.cacheKey(text), data, tes.cacheTTL).Err(); err != nil {
		tes.logger.WithError(err).Warn("Failed to cache embedding")
	}
}
