package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royalty-dashboard/internal/models"
)

func TestAggregate_Summary(t *testing.T) {
	b := Aggregate(sampleTable())

	assert.InDelta(t, 215.5, b.Summary.TotalRevenue, 1e-9)
	assert.Equal(t, int64(1800), b.Summary.TotalUnits)
	assert.Equal(t, 4, b.Summary.UniqueTracks)
	assert.Equal(t, 6, b.Summary.RowCount)
}

func TestAggregate_Timeline(t *testing.T) {
	b := Aggregate(sampleTable())

	require.Len(t, b.Timeline, 3)
	assert.Equal(t, "2024-01", b.Timeline[0].Month)
	assert.InDelta(t, 140.5, b.Timeline[0].Revenue, 1e-9)
	assert.Equal(t, "2024-02", b.Timeline[1].Month)
	assert.InDelta(t, 12.25, b.Timeline[1].Revenue, 1e-9)
	assert.Equal(t, "2024-03", b.Timeline[2].Month)
	assert.InDelta(t, 62.75, b.Timeline[2].Revenue, 1e-9)
}

func TestAggregate_TimelineSkipsEmptyMonths(t *testing.T) {
	b := Aggregate(newTable(
		fact(day(2024, 3, 4), "ONErpm", "Song A", 2, 1),
		fact(day(2024, 1, 9), "ONErpm", "Song A", 1, 1),
	))

	months := make([]string, 0, len(b.Timeline))
	for _, m := range b.Timeline {
		months = append(months, m.Month)
	}
	assert.Equal(t, []string{"2024-01", "2024-03"}, months)
}

func TestAggregate_ByDistributor(t *testing.T) {
	b := Aggregate(sampleTable())

	require.Len(t, b.ByDistributor, 3)
	assert.Equal(t, "ONErpm", b.ByDistributor[0].Key)
	assert.InDelta(t, 108.25, b.ByDistributor[0].Revenue, 1e-9)
	assert.Equal(t, 1000.0, b.ByDistributor[0].Units)
	assert.Equal(t, "Believe", b.ByDistributor[1].Key)
	assert.Equal(t, "DistroKid", b.ByDistributor[2].Key)

	var sum float64
	for _, g := range b.ByDistributor {
		sum += g.Revenue
	}
	assert.InDelta(t, b.Summary.TotalRevenue, sum, 1e-6)
}

func TestAggregate_GroupsAreExhaustive(t *testing.T) {
	b := Aggregate(sampleTable())

	sum := func(groups []models.GroupTotal) float64 {
		var s float64
		for _, g := range groups {
			s += g.Revenue
		}
		return s
	}
	assert.InDelta(t, b.Summary.TotalRevenue, sum(b.ByClassification), 1e-6)
	assert.InDelta(t, b.Summary.TotalRevenue, sum(b.ByStore), 1e-6)
	assert.InDelta(t, b.Summary.TotalRevenue, sum(b.ByCountry), 1e-6)
}

func TestAggregate_TopTracks(t *testing.T) {
	b := Aggregate(sampleTable())

	require.Len(t, b.TopTracks, 4)
	top := b.TopTracks[0]
	assert.Equal(t, "Song A", top.TrackTitle)
	assert.InDelta(t, 155.5, top.Revenue, 1e-9)
	assert.Equal(t, 1410.0, top.Units)
	assert.Equal(t, "Believe, ONErpm", top.Distributors)

	for i := 1; i < len(b.TopTracks); i++ {
		assert.GreaterOrEqual(t, b.TopTracks[i-1].Revenue, b.TopTracks[i].Revenue)
	}
}

func TestAggregate_TiesOrderByKey(t *testing.T) {
	b := Aggregate(newTable(
		fact(day(2024, 1, 1), "Zeta", "Song Z", 10, 1),
		fact(day(2024, 1, 1), "Alpha", "Song Y", 10, 1),
		fact(day(2024, 1, 1), "Mid", "Song X", 20, 1),
	))

	keys := make([]string, 0, len(b.ByDistributor))
	for _, g := range b.ByDistributor {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"Mid", "Alpha", "Zeta"}, keys)
	assert.Equal(t, "Song X", b.TopTracks[0].TrackTitle)
	assert.Equal(t, "Song Y", b.TopTracks[1].TrackTitle)
}

func TestAggregate_Truncation(t *testing.T) {
	var records []models.Record
	for i := 0; i < 40; i++ {
		r := fact(day(2024, 1, 1), fmt.Sprintf("D%02d", i), fmt.Sprintf("Track %02d", i), float64(i+1), 1)
		r.Store = fmt.Sprintf("Store %02d", i)
		r.Country = fmt.Sprintf("C%02d", i)
		records = append(records, r)
	}
	b := Aggregate(newTable(records...))

	assert.Len(t, b.ByDistributor, 40)
	assert.Len(t, b.ByStore, 20)
	assert.Len(t, b.ByCountry, 20)
	assert.Len(t, b.TopTracks, 30)
	assert.Equal(t, "Store 39", b.ByStore[0].Key)
	assert.Equal(t, "Track 39", b.TopTracks[0].TrackTitle)
	assert.Equal(t, "Track 10", b.TopTracks[29].TrackTitle)
}

func TestAggregate_Deterministic(t *testing.T) {
	table := sampleTable()
	assert.Equal(t, Aggregate(table), Aggregate(table))
}

func TestAggregate_Empty(t *testing.T) {
	b := Aggregate(newTable())

	assert.Equal(t, models.Summary{}, b.Summary)
	assert.NotNil(t, b.Timeline)
	assert.Empty(t, b.Timeline)
	assert.Empty(t, b.ByDistributor)
	assert.Empty(t, b.ByStore)
	assert.Empty(t, b.TopTracks)
}

func TestAggregate_DecimalSums(t *testing.T) {
	var records []models.Record
	for i := 0; i < 10; i++ {
		records = append(records, fact(day(2024, 1, 1), "ONErpm", "Song A", 0.1, 1))
	}
	b := Aggregate(newTable(records...))
	assert.Equal(t, 1.0, b.Summary.TotalRevenue)
}
