package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel

	QuizID        uint       `gorm:"not null;index;uniqueIndex:idx_quiz_user_attempt_number,priority:1" json:"quizId"`
	UserID        uint       `gorm:"not null;index;uniqueIndex:idx_quiz_user_attempt_number,priority:2" json:"userId"`
	AttemptNumber int        `gorm:"not null;uniqueIndex:idx_quiz_user_attempt_number,priority:3" json:"attemptNumber"`
	StartedAt     time.Time  `gorm:"not null" json:"startedAt"`
	SubmittedAt   *time.Time `json:"submittedAt,omitempty"`
	Score         int        `json:"score"`

	// Ordered question ids drawn for a final-exam attempt. Empty for fixed quizzes.
	SelectedQuestionIDs datatypes.JSONSlice[uint] `gorm:"column:selected_question_ids" json:"selectedQuestionIds"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.SelectedQuestionIDs == nil {
		a.SelectedQuestionIDs = datatypes.JSONSlice[uint]{}
	}
	return nil
}

func (a *QuizAttempt) IsSubmitted() bool {
	return a.SubmittedAt != nil
}

// QuizAttemptAnswer is one graded response; rows are written once at submission.
type QuizAttemptAnswer struct {
	BaseModel

	AttemptID         uint                      `gorm:"not null;index" json:"attemptId"`
	QuestionID        uint                      `gorm:"not null;index" json:"questionId"`
	SelectedAnswerID  *uint                     `json:"selectedAnswerId,omitempty"`
	SelectedAnswerIDs datatypes.JSONSlice[uint] `gorm:"column:selected_answer_ids" json:"selectedAnswerIds"`
	TextAnswer        *string                   `gorm:"type:text" json:"textAnswer,omitempty"`
	IsCorrect         bool                      `json:"isCorrect"`
	PointsAwarded     int                       `json:"pointsAwarded"`
}

func (QuizAttemptAnswer) TableName() string {
	return "quiz_attempt_answers"
}

func (a *QuizAttemptAnswer) BeforeCreate(tx *gorm.DB) error {
	if a.SelectedAnswerIDs == nil {
		a.SelectedAnswerIDs = datatypes.JSONSlice[uint]{}
	}
	return nil
}
