package service

import (
	"olp_backend/internal/model"
	"time"
)

// LearnerAnswer is an answer option as shown while a quiz is being taken.
type LearnerAnswer struct {
	ID         uint   `json:"id"`
	Text       string `json:"text"`
	OrderIndex *int   `json:"orderIndex,omitempty"`
}

type LearnerQuestion struct {
	ID         uint               `json:"id"`
	QuizID     uint               `json:"quizId"`
	Text       string             `json:"text"`
	Type       model.QuestionType `json:"type"`
	Points     int                `json:"points"`
	OrderIndex int                `json:"orderIndex"`
	ImageURL   string             `json:"imageUrl,omitempty"`
	Answers    []LearnerAnswer    `json:"answers"`
}

type QuizView struct {
	ID               uint              `json:"id"`
	CourseID         uint              `json:"courseId"`
	LessonID         *uint             `json:"lessonId,omitempty"`
	Title            string            `json:"title"`
	PassingScore     int               `json:"passingScore"`
	TimeLimit        *int              `json:"timeLimit,omitempty"`
	ShuffleQuestions bool              `json:"shuffleQuestions"`
	AllowRetake      bool              `json:"allowRetake"`
	IsActive         bool              `json:"isActive"`
	IsFinal          bool              `json:"isFinal"`
	Questions        []LearnerQuestion `json:"questions"`
}

// AttemptView is returned by the start operations.
type AttemptView struct {
	Attempt   *model.QuizAttempt `json:"attempt"`
	Quiz      QuizView           `json:"quiz"`
	Resumed   bool               `json:"resumed"`
	ExpiresAt *time.Time         `json:"expiresAt,omitempty"`
}

type SubmitResult struct {
	AttemptID     uint                      `json:"attemptId"`
	QuizID        uint                      `json:"quizId"`
	AttemptNumber int                       `json:"attemptNumber"`
	Score         int                       `json:"score"`
	Passed        bool                      `json:"passed"`
	EarnedPoints  int                       `json:"earnedPoints"`
	TotalPoints   int                       `json:"totalPoints"`
	CorrectCount  int                       `json:"correctCount"`
	QuestionCount int                       `json:"questionCount"`
	SubmittedAt   time.Time                 `json:"submittedAt"`
	Answers       []model.QuizAttemptAnswer `json:"answers"`
}

type ReviewAnswer struct {
	ID         uint   `json:"id"`
	Text       string `json:"text"`
	OrderIndex *int   `json:"orderIndex,omitempty"`
	IsCorrect  *bool  `json:"isCorrect,omitempty"`
}

type ReviewQuestion struct {
	ID               uint                     `json:"id"`
	Text             string                   `json:"text"`
	Type             model.QuestionType       `json:"type"`
	Points           int                      `json:"points"`
	ImageURL         string                   `json:"imageUrl,omitempty"`
	Answers          []ReviewAnswer           `json:"answers"`
	CorrectAnswerIDs []uint                   `json:"correctAnswerIds"`
	Response         *model.QuizAttemptAnswer `json:"response,omitempty"`
}

type AttemptReview struct {
	Attempt      *model.QuizAttempt `json:"attempt"`
	QuizTitle    string             `json:"quizTitle"`
	PassingScore int                `json:"passingScore"`
	Passed       bool               `json:"passed"`
	// Redacted is set while the attempt is in progress; correctness is withheld.
	Redacted  bool             `json:"redacted"`
	Questions []ReviewQuestion `json:"questions"`
}

func newQuizView(quiz *model.Quiz, questions []model.Question) QuizView {
	v := QuizView{
		ID:               quiz.ID,
		CourseID:         quiz.CourseID,
		LessonID:         quiz.LessonID,
		Title:            quiz.Title,
		PassingScore:     quiz.PassingScore,
		TimeLimit:        quiz.TimeLimit,
		ShuffleQuestions: quiz.ShuffleQuestions,
		AllowRetake:      quiz.AllowRetake,
		IsActive:         quiz.IsActive,
		IsFinal:          quiz.IsFinal,
		Questions:        make([]LearnerQuestion, 0, len(questions)),
	}
	for _, q := range questions {
		v.Questions = append(v.Questions, newLearnerQuestion(q))
	}
	return v
}

func newLearnerQuestion(q model.Question) LearnerQuestion {
	lq := LearnerQuestion{
		ID:         q.ID,
		QuizID:     q.QuizID,
		Text:       q.Text,
		Type:       q.Type,
		Points:     q.Points,
		OrderIndex: q.OrderIndex,
		ImageURL:   q.ImageURL,
		Answers:    make([]LearnerAnswer, 0, len(q.Answers)),
	}
	for _, a := range q.Answers {
		lq.Answers = append(lq.Answers, LearnerAnswer{ID: a.ID, Text: a.Text, OrderIndex: a.OrderIndex})
	}
	return lq
}

func newReviewQuestion(q model.Question, response *model.QuizAttemptAnswer, redact bool) ReviewQuestion {
	rq := ReviewQuestion{
		ID:               q.ID,
		Text:             q.Text,
		Type:             q.Type,
		Points:           q.Points,
		ImageURL:         q.ImageURL,
		Answers:          make([]ReviewAnswer, 0, len(q.Answers)),
		CorrectAnswerIDs: []uint{},
		Response:         response,
	}
	if !redact {
		rq.CorrectAnswerIDs = q.CorrectAnswerIDs()
	}
	for _, a := range q.Answers {
		ra := ReviewAnswer{ID: a.ID, Text: a.Text, OrderIndex: a.OrderIndex}
		if !redact {
			isCorrect := a.IsCorrect
			ra.IsCorrect = &isCorrect
		}
		rq.Answers = append(rq.Answers, ra)
	}
	return rq
}
