// Package dataset loads the processed menu item table produced by the
// offline cleaning pipeline. The pipeline itself is out of scope here; this
// package only validates and reads its output.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/deltaforge/smartdine/pkg/models"
)

// requiredColumns are the columns the recommendation core depends on. A
// dataset missing any of them is a fatal configuration error.
var requiredColumns = []string{
	"Item_Name",
	"Restaurant_Name",
	"Cuisine",
	"City",
	"Is_Expensive",
	"Is_Highly_Rated",
	"Is_Bestseller",
	"Average_Rating",
	"Restaurant_Popularity",
	"embedding_text",
}

// LoadItems reads the preprocessed CSV item table. City values are
// canonicalized on load so every downstream shard key matches.
func LoadItems(path string) ([]models.MenuItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open item table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read item table header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("item table missing required columns: %s", strings.Join(missing, ", "))
	}

	var items []models.MenuItem
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read item table row %d: %w", line+1, err)
		}
		line++

		rating, err := strconv.ParseFloat(record[cols["Average_Rating"]], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid Average_Rating %q", line, record[cols["Average_Rating"]])
		}
		popularity, err := strconv.ParseFloat(record[cols["Restaurant_Popularity"]], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid Restaurant_Popularity %q", line, record[cols["Restaurant_Popularity"]])
		}

		items = append(items, models.MenuItem{
			ItemName:             record[cols["Item_Name"]],
			RestaurantName:       record[cols["Restaurant_Name"]],
			Cuisine:              record[cols["Cuisine"]],
			City:                 models.NormalizeCity(record[cols["City"]]),
			IsExpensive:          parseFlag(record[cols["Is_Expensive"]]),
			IsHighlyRated:        parseFlag(record[cols["Is_Highly_Rated"]]),
			IsBestseller:         parseFlag(record[cols["Is_Bestseller"]]),
			AverageRating:        rating,
			RestaurantPopularity: popularity,
			EmbeddingText:        record[cols["embedding_text"]],
		})
	}

	return items, nil
}

// parseFlag accepts the 0/1 flags the preprocessing pipeline writes, plus
// textual booleans for hand-built fixtures.
func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
