package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltaforge/smartdine/pkg/models"
)

func resultFor(name, cuisine string) []models.ScoredItem {
	return []models.ScoredItem{
		{MenuItem: models.MenuItem{ItemName: name, Cuisine: cuisine}},
	}
}

func TestSessionMemory_UpdateAndGet(t *testing.T) {
	sm, err := NewSessionMemory(100, 5)
	require.NoError(t, err)

	sm.Update("s1", "cheesy pizza", resultFor("Margherita", "Pizza"), "comfort", "chennai")

	rec := sm.Get("s1")
	assert.Equal(t, []string{"cheesy pizza"}, rec.Queries)
	assert.Equal(t, []string{"comfort"}, rec.Moods)
	assert.Equal(t, []string{"Pizza"}, rec.Cuisines)
	assert.Equal(t, []string{"Margherita"}, rec.Items)
	assert.Equal(t, "chennai", rec.City)
}

func TestSessionMemory_UnknownSessionIsZero(t *testing.T) {
	sm, err := NewSessionMemory(100, 5)
	require.NoError(t, err)

	rec := sm.Get("nobody")
	assert.Empty(t, rec.Queries)
	assert.Empty(t, rec.Items)
	assert.Empty(t, rec.City)
}

func TestSessionMemory_WindowEvictsOldest(t *testing.T) {
	sm, err := NewSessionMemory(100, 5)
	require.NoError(t, err)

	for i := 1; i <= 7; i++ {
		query := fmt.Sprintf("q%d", i)
		sm.Update("s1", query, resultFor(fmt.Sprintf("item%d", i), "Pizza"), "comfort", "chennai")
	}

	rec := sm.Get("s1")
	assert.Equal(t, []string{"q3", "q4", "q5", "q6", "q7"}, rec.Queries)
	assert.Equal(t, []string{"item3", "item4", "item5", "item6", "item7"}, rec.Items)
	assert.Len(t, rec.Moods, 5)
}

func TestSessionMemory_SkipsEmptyFields(t *testing.T) {
	sm, err := NewSessionMemory(100, 5)
	require.NoError(t, err)

	results := []models.ScoredItem{
		{MenuItem: models.MenuItem{ItemName: "", Cuisine: "Pizza"}},
		{MenuItem: models.MenuItem{ItemName: "Dosa", Cuisine: ""}},
	}
	sm.Update("s1", "anything", results, "comfort", "chennai")

	rec := sm.Get("s1")
	assert.Equal(t, []string{"Pizza"}, rec.Cuisines)
	assert.Equal(t, []string{"Dosa"}, rec.Items)
}

func TestSessionMemory_CapacityEvictsLRU(t *testing.T) {
	sm, err := NewSessionMemory(2, 5)
	require.NoError(t, err)

	sm.Update("s1", "q", resultFor("a", "Pizza"), "comfort", "chennai")
	sm.Update("s2", "q", resultFor("b", "Pizza"), "comfort", "chennai")
	sm.Update("s3", "q", resultFor("c", "Pizza"), "comfort", "chennai")

	assert.Equal(t, 2, sm.Len())
	assert.Empty(t, sm.Get("s1").Items, "oldest session should be evicted")
	assert.Equal(t, []string{"c"}, sm.Get("s3").Items)
}

func TestSessionMemory_SnapshotIsolation(t *testing.T) {
	sm, err := NewSessionMemory(100, 5)
	require.NoError(t, err)

	sm.Update("s1", "q1", resultFor("a", "Pizza"), "comfort", "chennai")

	rec := sm.Get("s1")
	rec.Items[0] = "mutated"
	rec.Queries = append(rec.Queries, "extra")

	fresh := sm.Get("s1")
	assert.Equal(t, []string{"a"}, fresh.Items)
	assert.Equal(t, []string{"q1"}, fresh.Queries)
}
