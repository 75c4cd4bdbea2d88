package analysis

import (
	"testing"

	"github.com/myrjola/aivisibility/internal/models"
	"github.com/stretchr/testify/require"
)

func TestItemScore(t *testing.T) {
	tests := []struct {
		name string
		item models.AnalysisItem
		want int
	}{
		{"not visible", models.AnalysisItem{IsVisible: false, IsFullMatch: true, Rank: 1}, 0},
		{"visible unranked", models.AnalysisItem{IsVisible: true}, 50},
		{"full match top three", models.AnalysisItem{IsVisible: true, IsFullMatch: true, Rank: 2}, 100},
		{"partial rank seven", models.AnalysisItem{IsVisible: true, Rank: 7}, 60},
		{"full match rank ten", models.AnalysisItem{IsVisible: true, IsFullMatch: true, Rank: 10}, 90},
		{"rank eleven has no bonus", models.AnalysisItem{IsVisible: true, Rank: 11}, 50},
		{"negative rank", models.AnalysisItem{IsVisible: true, IsFullMatch: true, Rank: -1}, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ItemScore(tt.item))
		})
	}
}

func TestComputeMetrics(t *testing.T) {
	t.Run("empty result set", func(t *testing.T) {
		m := ComputeMetrics(ResultSet{}, 4)
		require.Equal(t, "0/4", m.Visibility)
		require.Equal(t, "0", m.AvgRank)
		require.Equal(t, "0%", m.Score)
		require.Equal(t, "0", m.Insights)
	})

	t.Run("single perfect result", func(t *testing.T) {
		m := ComputeMetrics(ResultSet{0: {IsVisible: true, IsFullMatch: true, Rank: 2}}, 1)
		require.Equal(t, "100%", m.Score)
		require.Equal(t, "1/1", m.Visibility)
		require.Equal(t, "2.0", m.AvgRank)
	})

	t.Run("single partial rank seven", func(t *testing.T) {
		m := ComputeMetrics(ResultSet{0: {IsVisible: true, Rank: 7}}, 1)
		require.Equal(t, "60%", m.Score)
	})

	t.Run("unranked results", func(t *testing.T) {
		m := ComputeMetrics(ResultSet{0: {IsVisible: true, Rank: 0}, 1: {Rank: -3}}, 2)
		require.Equal(t, "N/A", m.AvgRank)
		require.Equal(t, "1/2", m.Visibility)
	})

	t.Run("pending queries dilute the score", func(t *testing.T) {
		results := ResultSet{
			0: {IsVisible: true, IsFullMatch: true, Rank: 1, Recommendations: []string{"a", "b"}},
			2: {IsVisible: true, Rank: 5, Recommendations: []string{"c"}},
		}
		m := ComputeMetrics(results, 4)
		// (100 + 60) / 4
		require.Equal(t, "40%", m.Score)
		require.Equal(t, "2/4", m.Visibility)
		require.Equal(t, "3.0", m.AvgRank)
		require.Equal(t, "3", m.Insights)
	})

	t.Run("average rank rounds to one decimal", func(t *testing.T) {
		results := ResultSet{0: {Rank: 1}, 1: {Rank: 2}, 2: {Rank: 2}}
		require.Equal(t, "1.7", ComputeMetrics(results, 3).AvgRank)
	})

	t.Run("average rank ties round up", func(t *testing.T) {
		results := ResultSet{0: {Rank: 1}, 1: {Rank: 1}, 2: {Rank: 1}, 3: {Rank: 2}}
		require.Equal(t, "1.3", ComputeMetrics(results, 4).AvgRank)
		results = ResultSet{0: {Rank: 2}, 1: {Rank: 2}, 2: {Rank: 2}, 3: {Rank: 3}}
		require.Equal(t, "2.3", ComputeMetrics(results, 4).AvgRank)
	})

	t.Run("score rounds half up", func(t *testing.T) {
		// 50 / 4 = 12.5
		m := ComputeMetrics(ResultSet{0: {IsVisible: true}}, 4)
		require.Equal(t, "13%", m.Score)
	})

	t.Run("zero total", func(t *testing.T) {
		m := ComputeMetrics(ResultSet{0: {IsVisible: true}}, 0)
		require.Equal(t, "0%", m.Score)
	})
}
