// Package score holds the pure scoring and aggregation functions shared by
// the player machine and the admin controller.
package score

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/quizwire/quizwire/internal/domain"
)

// Speed computes the time-decayed points for one answered question: full
// points at zero elapsed time, decaying linearly to half the points as
// elapsed approaches the question duration, floored at zero. The result is
// rounded to one decimal place.
//
// A zero duration or missing timestamps yield full points for a correct
// answer; there is no meaningful elapsed fraction to decay by.
func Speed(rec domain.AnswerRecord, points float64, duration int) decimal.Decimal {
	if !rec.Correct {
		return decimal.Zero
	}

	p := decimal.NewFromFloat(points)
	if duration <= 0 || rec.AnsweredAt == nil || rec.QuestionStartedAt == nil {
		return p.Round(1)
	}

	elapsed := rec.AnsweredAt.Sub(*rec.QuestionStartedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	fraction := 1 - (elapsed/float64(duration))/2
	if fraction < 0 {
		fraction = 0
	}

	return p.Mul(decimal.NewFromFloat(fraction)).Round(1)
}

// RankEntry is one row of the final ranking.
type RankEntry struct {
	Name    string
	Correct int
}

// Rank orders players by number of correct answers, descending. Ties keep
// their original relative order.
func Rank(results []domain.PlayerResult) []RankEntry {
	entries := make([]RankEntry, 0, len(results))
	for _, r := range results {
		n := 0
		for _, a := range r.Answers {
			if a.Correct {
				n++
			}
		}
		entries = append(entries, RankEntry{Name: r.Name, Correct: n})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Correct > entries[j].Correct
	})

	return entries
}

// Top returns at most n leading entries of a ranking.
func Top(entries []RankEntry, n int) []RankEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[:n]
}

// QuestionStat aggregates one question across all players.
type QuestionStat struct {
	// PercentageCorrect is correct answers over total players, 0-100.
	PercentageCorrect float64
	// AvgResponseSeconds is the mean answer latency in seconds, one decimal
	// place, over players that actually answered. Players with missing
	// timestamps are excluded from the denominator so they do not drag the
	// average toward zero.
	AvgResponseSeconds decimal.Decimal
	// Answered counts players contributing to AvgResponseSeconds.
	Answered int
}

// QuestionStats computes per-question aggregates from the full results
// payload. The number of questions is taken from the longest answer history.
func QuestionStats(results []domain.PlayerResult) []QuestionStat {
	questions := 0
	for _, r := range results {
		if len(r.Answers) > questions {
			questions = len(r.Answers)
		}
	}

	stats := make([]QuestionStat, questions)
	if len(results) == 0 {
		return stats
	}

	for q := 0; q < questions; q++ {
		var (
			correct  int
			answered int
			total    decimal.Decimal
		)

		for _, r := range results {
			if q >= len(r.Answers) {
				continue
			}
			rec := r.Answers[q]
			if rec.Correct {
				correct++
			}
			if rec.AnsweredAt != nil && rec.QuestionStartedAt != nil {
				answered++
				total = total.Add(decimal.NewFromFloat(rec.AnsweredAt.Sub(*rec.QuestionStartedAt).Seconds()))
			}
		}

		stat := QuestionStat{
			PercentageCorrect: float64(correct) / float64(len(results)) * 100,
			Answered:          answered,
		}
		if answered > 0 {
			stat.AvgResponseSeconds = total.Div(decimal.NewFromInt(int64(answered))).Round(1)
		}
		stats[q] = stat
	}

	return stats
}
