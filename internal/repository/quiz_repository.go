package repository

import (
	"context"
	"errors"
	"olp_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) FindByID(ctx context.Context, id uint) (*model.Quiz, error) {
	var q model.Quiz
	if err := r.DB.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// FindFinalByCourse returns nil, nil when the course has no final quiz yet.
func (r *QuizRepository) FindFinalByCourse(ctx context.Context, courseID uint) (*model.Quiz, error) {
	var q model.Quiz
	err := r.DB.WithContext(ctx).
		Where("course_id = ? AND is_final = ?", courseID, true).
		Order("id asc").
		First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuizRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("is_final asc, id asc").
		Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	if quiz.IsFinal {
		courseID := quiz.CourseID
		quiz.FinalCourseID = &courseID
	}
	return r.DB.WithContext(ctx).Create(quiz).Error
}

func (r *QuizRepository) Update(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Save(quiz).Error
}
