package model

type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "MCQ"
	QuestionTypeMSQ         QuestionType = "MSQ"
	QuestionTypeTrueFalse   QuestionType = "TrueFalse"
	QuestionTypeShortAnswer QuestionType = "ShortAnswer"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeMSQ, QuestionTypeTrueFalse, QuestionTypeShortAnswer:
		return true
	}
	return false
}

// swagger:model Question
type Question struct {
	BaseModel

	QuizID     uint         `gorm:"index;not null" json:"quizId"`
	Text       string       `gorm:"type:text;not null" json:"text"`
	Type       QuestionType `gorm:"size:20;not null" json:"type"`
	Points     int          `json:"points"`
	OrderIndex int          `json:"orderIndex"`
	ImageURL   string       `gorm:"size:255" json:"imageUrl,omitempty"`

	Answers []Answer `gorm:"foreignKey:QuestionID" json:"answers,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectAnswerIDs returns the ids of the answers flagged correct, in stored order.
func (q *Question) CorrectAnswerIDs() []uint {
	ids := make([]uint, 0, 1)
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// swagger:model Answer
type Answer struct {
	BaseModel

	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `json:"isCorrect"`
	OrderIndex *int   `json:"orderIndex,omitempty"`
}

func (Answer) TableName() string {
	return "answers"
}
