// Package search implements the per-city nearest-neighbor index. Shards are
// built offline by cmd/indexer and loaded read-only at startup; vectors are
// L2-normalized at build and query time so the inner product equals cosine
// similarity.
package search

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/deltaforge/smartdine/pkg/models"
)

// ErrCityNotFound signals that no shard exists for the requested city key.
// The serving core treats this as an empty result, never a fault.
var ErrCityNotFound = errors.New("no index for city")

const shardExtension = ".idx"

// Match pairs an item with its cosine similarity to the query.
type Match struct {
	Item  models.MenuItem
	Score float64
}

// Searcher is the read-side contract the recommender consumes.
type Searcher interface {
	Search(cityKey string, queryVec []float64, k int) ([]Match, error)
	Items(cityKey string) ([]models.MenuItem, error)
	Cities() []string
}

// CityShard holds one city's normalized vectors and the item records aligned
// with them, position by position.
type CityShard struct {
	City       string
	Dimensions int
	Vectors    [][]float64
	Items      []models.MenuItem
}

// NewCityShard builds a shard from parallel item and embedding slices,
// normalizing the vectors in place.
func NewCityShard(city string, dimensions int, items []models.MenuItem, embeddings [][]float64) (*CityShard, error) {
	if len(items) != len(embeddings) {
		return nil, fmt.Errorf("city %s: %d items but %d embeddings", city, len(items), len(embeddings))
	}
	for i, embedding := range embeddings {
		if len(embedding) != dimensions {
			return nil, fmt.Errorf("city %s: embedding dimension mismatch at row %d: expected %d, got %d",
				city, i, dimensions, len(embedding))
		}
		normalize(embedding)
	}

	return &CityShard{
		City:       models.NormalizeCity(city),
		Dimensions: dimensions,
		Vectors:    embeddings,
		Items:      items,
	}, nil
}

// Save writes the shard as <dir>/<city>.idx.
func (s *CityShard) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}

	path := filepath.Join(dir, s.City+shardExtension)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create shard file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("failed to encode shard %s: %w", s.City, err)
	}
	return nil
}

// Index is the city-sharded collection. It is immutable after Load; reads
// need no synchronization.
type Index struct {
	shards     map[string]*CityShard
	dimensions int
	logger     *logrus.Logger
}

// New assembles an index from prebuilt shards. Used by the indexer and in
// tests; the server path goes through Load.
func New(logger *logrus.Logger, shards ...*CityShard) *Index {
	idx := &Index{
		shards: make(map[string]*CityShard, len(shards)),
		logger: logger,
	}
	for _, shard := range shards {
		idx.shards[shard.City] = shard
		idx.dimensions = shard.Dimensions
	}
	return idx
}

// Load reads every shard file in dir. An empty dir or a shard whose
// dimension disagrees with the configured embedder is a fatal configuration
// error, surfaced here rather than at serve time.
func Load(dir string, dimensions int, logger *logrus.Logger) (*Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read index dir: %w", err)
	}

	idx := &Index{
		shards:     make(map[string]*CityShard),
		dimensions: dimensions,
		logger:     logger,
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), shardExtension) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open shard %s: %w", entry.Name(), err)
		}

		var shard CityShard
		err = gob.NewDecoder(f).Decode(&shard)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode shard %s: %w", entry.Name(), err)
		}

		if shard.Dimensions != dimensions {
			return nil, fmt.Errorf("shard %s built with dimension %d, embedder configured for %d",
				shard.City, shard.Dimensions, dimensions)
		}

		idx.shards[shard.City] = &shard
		logger.WithFields(logrus.Fields{
			"city":  shard.City,
			"items": len(shard.Items),
		}).Info("Loaded city index shard")
	}

	if len(idx.shards) == 0 {
		return nil, fmt.Errorf("no index shards found in %s", dir)
	}

	return idx, nil
}

// Search returns up to k items for the city, descending by cosine
// similarity. The query vector is not mutated.
func (idx *Index) Search(cityKey string, queryVec []float64, k int) ([]Match, error) {
	shard, ok := idx.shards[cityKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCityNotFound, cityKey)
	}
	if len(queryVec) != shard.Dimensions {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", shard.Dimensions, len(queryVec))
	}
	if k <= 0 || len(shard.Items) == 0 {
		return nil, nil
	}

	query := make([]float64, len(queryVec))
	copy(query, queryVec)
	normalize(query)

	matches := make([]Match, len(shard.Items))
	for i, vec := range shard.Vectors {
		matches[i] = Match{
			Item:  shard.Items[i],
			Score: floats.Dot(query, vec),
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Items returns the city's full item set, for the surprise branch.
func (idx *Index) Items(cityKey string) ([]models.MenuItem, error) {
	shard, ok := idx.shards[cityKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCityNotFound, cityKey)
	}
	return shard.Items, nil
}

// Cities lists the loaded city keys, sorted.
func (idx *Index) Cities() []string {
	cities := make([]string, 0, len(idx.shards))
	for city := range idx.shards {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return cities
}

func normalize(v []float64) {
	norm := floats.Norm(v, 2)
	if norm > 0 {
		floats.Scale(1/norm, v)
	}
}
