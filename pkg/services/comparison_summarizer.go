package services

import (
	"sort"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// Summarize aggregates row classifications into counts and per-pair agreement rates.
//
// A pair agrees on a matched row unless that row carries a Diff for the pair, so
// pairs must be the compared pairs the classifications were produced with. Columns
// are sorted by rate descending, ties in pair order. Summarize never fails.
func Summarize(rows []models.RowClassification, pairs []models.ColumnPair) models.SummaryStats {
	var stats models.SummaryStats
	disagreed := make(map[string]int, len(pairs))

	for _, rc := range rows {
		if rc.SourceRow != models.NoRow {
			stats.SourceRows++
		}
		if rc.TargetRow != models.NoRow {
			stats.TargetRows++
		}
		if rc.DuplicateKey {
			stats.DuplicateKeys++
		}
		switch rc.Status {
		case models.RowStatusAdded:
			stats.Added++
		case models.RowStatusRemoved:
			stats.Removed++
		case models.RowStatusIdentical:
			stats.Identical++
		case models.RowStatusModified:
			stats.Modified++
			for _, d := range rc.Diffs {
				disagreed[d.SourceColumn]++
			}
		}
	}

	matched := stats.Matched()
	stats.Columns = make([]models.ColumnStat, len(pairs))
	for i, p := range pairs {
		agreed := matched - disagreed[p.Source]
		rate := 0.0
		if matched > 0 {
			rate = float64(agreed) / float64(matched)
		}
		stats.Columns[i] = models.ColumnStat{
			SourceColumn: p.Source,
			TargetColumn: p.Target,
			Matched:      matched,
			Agreed:       agreed,
			Rate:         rate,
		}
	}
	sort.SliceStable(stats.Columns, func(i, j int) bool {
		return stats.Columns[i].Rate > stats.Columns[j].Rate
	})
	return stats
}
