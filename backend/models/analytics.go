package models

// Bucket counts answered and correct questions for one category or
// difficulty.
type Bucket struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

type Dashboard struct {
	TotalQuestions int               `json:"total_questions"`
	CorrectAnswers int               `json:"correct_answers"`
	Accuracy       float64           `json:"accuracy"`
	ByCategory     map[string]Bucket `json:"by_category"`
	ByDifficulty   map[string]Bucket `json:"by_difficulty"`
}

// Score is the result of a finished quiz.
type Score struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
	Percent int `json:"percent"`
}

// All lists every table the service migrates.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Question{},
		&Answer{},
		&QuizAttempt{},
		&QuizQuestion{},
		&UserProgress{},
	}
}
