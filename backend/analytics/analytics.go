// Package analytics reduces progress and quiz rows into the numbers shown on
// the dashboard and results pages.
package analytics

import (
	"math"

	"radbank/backend/models"
)

// Percent is correct/total*100, or 0 when total is 0.
func Percent(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Aggregate groups a user's progress by category and by difficulty.
func Aggregate(rows []models.ProgressStat) models.Dashboard {
	d := models.Dashboard{
		ByCategory:   make(map[string]models.Bucket),
		ByDifficulty: make(map[string]models.Bucket),
	}
	for _, r := range rows {
		d.TotalQuestions++
		if r.IsCorrect {
			d.CorrectAnswers++
		}
		d.ByCategory[string(r.Category)] = add(d.ByCategory[string(r.Category)], r.IsCorrect)
		d.ByDifficulty[string(r.Difficulty)] = add(d.ByDifficulty[string(r.Difficulty)], r.IsCorrect)
	}
	d.Accuracy = Round(Percent(d.CorrectAnswers, d.TotalQuestions), 1)
	return d
}

func add(b models.Bucket, correct bool) models.Bucket {
	b.Total++
	if correct {
		b.Correct++
	}
	return b
}

// ScoreOf scores a quiz from its recorded questions. Unanswered questions are
// never recorded, so they count neither way.
func ScoreOf(rows []models.QuizQuestion) models.Score {
	s := models.Score{Total: len(rows)}
	for _, r := range rows {
		if r.IsCorrect != nil && *r.IsCorrect {
			s.Correct++
		}
	}
	s.Percent = int(math.Round(Percent(s.Correct, s.Total)))
	return s
}

// Summarize fills in the score of each recent attempt.
func Summarize(attempts []models.AttemptSummary) []AttemptScore {
	out := make([]AttemptScore, len(attempts))
	for i, a := range attempts {
		out[i] = AttemptScore{
			AttemptSummary: a,
			Score:          Round(Percent(a.Correct, a.Answered), 1),
		}
	}
	return out
}

type AttemptScore struct {
	models.AttemptSummary
	Score float64 `json:"score"`
}
