package service

import (
	"context"
	"olp_backend/internal/model"
)

// QuestionBank reads questions with their answers preloaded.
type QuestionBank interface {
	FindByIDs(ctx context.Context, ids []uint) ([]model.Question, error)
	ListByQuiz(ctx context.Context, quizID uint) ([]model.Question, error)
	ListLessonQuestionsByCourse(ctx context.Context, courseID uint) ([]model.Question, error)
}

type QuizCatalog interface {
	FindByID(ctx context.Context, id uint) (*model.Quiz, error)
	// FindFinalByCourse returns nil, nil when the course has no final quiz.
	FindFinalByCourse(ctx context.Context, courseID uint) (*model.Quiz, error)
	Create(ctx context.Context, quiz *model.Quiz) error
}

// AttemptStore persists attempts. Submit and Expire close an attempt at most once and
// return util.ErrAttemptSubmitted to every later caller.
type AttemptStore interface {
	Create(ctx context.Context, attempt *model.QuizAttempt) error
	FindByID(ctx context.Context, id uint) (*model.QuizAttempt, error)
	ListByUser(ctx context.Context, userID uint) ([]model.QuizAttempt, error)
	CountByUserAndQuiz(ctx context.Context, userID, quizID uint) (int64, error)
	FindInProgress(ctx context.Context, userID, quizID uint) (*model.QuizAttempt, error)
	UpdateSelection(ctx context.Context, attemptID uint, questionIDs []uint) error
	Submit(ctx context.Context, attempt *model.QuizAttempt, answers []model.QuizAttemptAnswer) error
	Expire(ctx context.Context, attempt *model.QuizAttempt) error
	GetAnswers(ctx context.Context, attemptID uint) ([]model.QuizAttemptAnswer, error)
}
