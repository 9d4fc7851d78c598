package repository

import (
	"context"
	"errors"
	"olp_backend/internal/model"
	"olp_backend/internal/util"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuizAttemptRepository struct {
	DB *gorm.DB
}

func NewQuizAttemptRepository(db *gorm.DB) *QuizAttemptRepository {
	return &QuizAttemptRepository{DB: db}
}

func (r *QuizAttemptRepository) Create(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *QuizAttemptRepository) FindByID(ctx context.Context, id uint) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	if err := r.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *QuizAttemptRepository) ListByUser(ctx context.Context, userID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at desc, id desc").
		Find(&attempts).Error
	return attempts, err
}

func (r *QuizAttemptRepository) CountByUserAndQuiz(ctx context.Context, userID, quizID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&count).Error
	return count, err
}

// FindInProgress returns the user's latest unsubmitted attempt for the quiz, or nil, nil.
func (r *QuizAttemptRepository) FindInProgress(ctx context.Context, userID, quizID uint) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ? AND submitted_at IS NULL", userID, quizID).
		Order("attempt_number desc").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateSelection overwrites the persisted question selection of an unsubmitted attempt.
func (r *QuizAttemptRepository) UpdateSelection(ctx context.Context, attemptID uint, questionIDs []uint) error {
	res := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("id = ? AND submitted_at IS NULL", attemptID).
		Update("selected_question_ids", datatypes.JSONSlice[uint](questionIDs))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrAttemptSubmitted
	}
	return nil
}

// Submit records the score and answers of an attempt as one unit. An attempt without an id is
// inserted already submitted; otherwise submitted_at is set only if it is still NULL.
func (r *QuizAttemptRepository) Submit(ctx context.Context, attempt *model.QuizAttempt, answers []model.QuizAttemptAnswer) error {
	if attempt.SubmittedAt == nil {
		return errors.New("submit requires submittedAt")
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if attempt.ID == 0 {
			if err := tx.Create(attempt).Error; err != nil {
				return err
			}
		} else if err := markSubmitted(tx, attempt.ID, *attempt.SubmittedAt, attempt.Score); err != nil {
			return err
		}

		if len(answers) == 0 {
			return nil
		}
		for i := range answers {
			answers[i].AttemptID = attempt.ID
		}
		return tx.Create(&answers).Error
	})
}

// Expire consumes an attempt with score 0 and no answers.
func (r *QuizAttemptRepository) Expire(ctx context.Context, attempt *model.QuizAttempt) error {
	if attempt.SubmittedAt == nil {
		return errors.New("expire requires submittedAt")
	}
	return markSubmitted(r.DB.WithContext(ctx), attempt.ID, *attempt.SubmittedAt, 0)
}

func markSubmitted(db *gorm.DB, attemptID uint, submittedAt time.Time, score int) error {
	res := db.Model(&model.QuizAttempt{}).
		Where("id = ? AND submitted_at IS NULL", attemptID).
		Updates(map[string]interface{}{
			"submitted_at": submittedAt,
			"score":        score,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrAttemptSubmitted
	}
	return nil
}

func (r *QuizAttemptRepository) GetAnswers(ctx context.Context, attemptID uint) ([]model.QuizAttemptAnswer, error) {
	var answers []model.QuizAttemptAnswer
	err := r.DB.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("id asc").
		Find(&answers).Error
	return answers, err
}
