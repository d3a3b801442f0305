package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/deltaforge/smartdine/internal/config"
	"github.com/deltaforge/smartdine/internal/dataset"
	"github.com/deltaforge/smartdine/internal/ml"
	"github.com/deltaforge/smartdine/internal/search"
	"github.com/deltaforge/smartdine/pkg/models"
)

const embedBatchSize = 64

// indexer builds the per-city shard files the server loads at startup. It
// reads the preprocessed item table, embeds each item's embedding_text
// through the sidecar, and writes one shard per city.
func main() {
	var (
		itemsPath = flag.String("items", "", "path to the preprocessed item table (overrides config)")
		indexDir  = flag.String("out", "", "directory for the shard files (overrides config)")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if *itemsPath == "" {
		*itemsPath = cfg.Data.ItemsPath
	}
	if *indexDir == "" {
		*indexDir = cfg.Data.IndexDir
	}

	items, err := dataset.LoadItems(*itemsPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load item table")
	}
	if len(items) == 0 {
		logger.Fatal("Item table is empty, nothing to index")
	}
	logger.WithField("items", len(items)).Info("Loaded item table")

	embedder := ml.NewTextEmbeddingService(cfg.Embedding, nil, logger)
	ctx := context.Background()

	byCity := make(map[string][]models.MenuItem)
	for _, item := range items {
		byCity[item.City] = append(byCity[item.City], item)
	}

	for city, cityItems := range byCity {
		embeddings, err := embedAll(ctx, embedder, cityItems)
		if err != nil {
			logger.WithError(err).WithField("city", city).Fatal("Failed to embed items")
		}

		shard, err := search.NewCityShard(city, embedder.Dimensions(), cityItems, embeddings)
		if err != nil {
			logger.WithError(err).WithField("city", city).Fatal("Failed to build shard")
		}

		if err := shard.Save(*indexDir); err != nil {
			logger.WithError(err).WithField("city", city).Fatal("Failed to save shard")
		}

		logger.WithFields(logrus.Fields{
			"city":  city,
			"items": len(cityItems),
		}).Info("Wrote city index shard")
	}

	logger.WithFields(logrus.Fields{
		"cities": len(byCity),
		"out":    *indexDir,
	}).Info("Index build complete")
	os.Exit(0)
}

func embedAll(ctx context.Context, embedder ml.Embedder, items []models.MenuItem) ([][]float64, error) {
	embeddings := make([][]float64, 0, len(items))
	for start := 0; start < len(items); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(items) {
			end = len(items)
		}

		texts := make([]string, 0, end-start)
		for _, item := range items[start:end] {
			texts = append(texts, item.EmbeddingText)
		}

		batch, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}
