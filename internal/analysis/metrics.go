package analysis

import (
	"fmt"
	"math"
	"strconv"

	"github.com/myrjola/aivisibility/internal/models"
)

// ResultSet holds the analysis items that have arrived so far keyed by query index.
type ResultSet map[int]models.AnalysisItem

// Metrics are the display-ready aggregates shown above the per-query results.
type Metrics struct {
	// Visibility is "visible/total".
	Visibility string
	// AvgRank is the mean rank over ranked items with one decimal, or "N/A" when nothing is ranked.
	AvgRank string
	// Score is the mean per-query score over all queries as a rounded percentage.
	Score string
	// Insights is the number of recommendations across the results.
	Insights string

	VisibleCount int
	Total        int
}

// ItemScore is the 0 to 100 visibility score of a single analysed query.
func ItemScore(item models.AnalysisItem) int {
	if !item.IsVisible {
		return 0
	}
	score := 50
	if item.IsFullMatch {
		score += 30
	}
	switch {
	case item.Rank >= 1 && item.Rank <= 3:
		score += 20
	case item.Rank >= 4 && item.Rank <= 10:
		score += 10
	}
	return score
}

// ComputeMetrics summarises results against the total number of queries, including those that have not
// completed. Missing queries count as zero in the score.
func ComputeMetrics(results ResultSet, total int) Metrics {
	if len(results) == 0 {
		return Metrics{
			Visibility: fmt.Sprintf("0/%d", total),
			AvgRank:    "0",
			Score:      "0%",
			Insights:   "0",
			Total:      total,
		}
	}

	var visible, ranked, rankSum, scoreSum, insights int
	for _, item := range results {
		if item.IsVisible {
			visible++
		}
		if item.Ranked() {
			ranked++
			rankSum += item.Rank
		}
		scoreSum += ItemScore(item)
		insights += len(item.Recommendations)
	}

	avgRank := "N/A"
	if ranked > 0 {
		// Ties round up so that 1.25 reads 1.3.
		tenths := math.Round(float64(rankSum) * 10 / float64(ranked))
		avgRank = strconv.FormatFloat(tenths/10, 'f', 1, 64)
	}

	score := 0
	if total > 0 {
		score = int(math.Round(float64(scoreSum) / float64(total)))
	}

	return Metrics{
		Visibility:   fmt.Sprintf("%d/%d", visible, total),
		AvgRank:      avgRank,
		Score:        fmt.Sprintf("%d%%", score),
		Insights:     strconv.Itoa(insights),
		VisibleCount: visible,
		Total:        total,
	}
}
