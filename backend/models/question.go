package models

import "github.com/google/uuid"

type Category string

const (
	CategoryBrain       Category = "brain"
	CategoryHeadAndNeck Category = "head_and_neck"
	CategorySpine       Category = "spine"
	CategoryPeds        Category = "peds"
	CategoryPhysics     Category = "physics"
)

var Categories = []Category{CategoryBrain, CategoryHeadAndNeck, CategorySpine, CategoryPeds, CategoryPhysics}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type Difficulty string

// Easy and advanced are the current levels; medium and hard are still
// accepted for questions written before the two-level scheme.
const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyAdvanced Difficulty = "advanced"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
)

var Difficulties = []Difficulty{DifficultyEasy, DifficultyAdvanced, DifficultyMedium, DifficultyHard}

func (d Difficulty) Valid() bool {
	for _, v := range Difficulties {
		if d == v {
			return true
		}
	}
	return false
}

type QuestionType string

const (
	TypeInfection    QuestionType = "infection"
	TypeInflammation QuestionType = "inflammation"
	TypeTumor        QuestionType = "tumor"
	TypeCongenital   QuestionType = "congenital"
	TypeOther        QuestionType = "other"
)

var QuestionTypes = []QuestionType{TypeInfection, TypeInflammation, TypeTumor, TypeCongenital, TypeOther}

func (t QuestionType) Valid() bool {
	for _, v := range QuestionTypes {
		if t == v {
			return true
		}
	}
	return false
}

type Question struct {
	Base
	QuestionText        string       `gorm:"type:text;not null" json:"question_text"`
	ImageURL            *string      `json:"image_url,omitempty"`
	Explanation         string       `gorm:"type:text" json:"explanation"`
	ExplanationImageURL *string      `json:"explanation_image_url,omitempty"`
	Category            Category     `gorm:"size:32;not null;index" json:"category"`
	Difficulty          Difficulty   `gorm:"size:16;not null;index" json:"difficulty"`
	Type                QuestionType `gorm:"column:type;size:16;not null;index" json:"type"`
	Answers             []Answer     `json:"answers"`
}

func (Question) TableName() string { return "questions" }

// Answer finds one of the question's answers by id.
func (q Question) Answer(id uuid.UUID) (Answer, bool) {
	for _, a := range q.Answers {
		if a.ID == id {
			return a, true
		}
	}
	return Answer{}, false
}

// CorrectAnswerID returns the first answer flagged correct.
func (q Question) CorrectAnswerID() (uuid.UUID, bool) {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a.ID, true
		}
	}
	return uuid.Nil, false
}

type Answer struct {
	Base
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index" json:"question_id"`
	AnswerText string    `gorm:"type:text;not null" json:"answer_text"`
	IsCorrect  bool      `gorm:"not null;default:false" json:"is_correct"`
}

func (Answer) TableName() string { return "answers" }
