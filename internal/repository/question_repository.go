package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"olp_backend/internal/model"
	"olp_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuestionRepository is the read side of the question bank plus the authoring writes.
// Per-quiz question lists are cached in Redis when a client is configured.
type QuestionRepository struct {
	DB       *gorm.DB
	Redis    *redis.Client
	CacheTTL time.Duration
}

func NewQuestionRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{DB: db, Redis: rdb, CacheTTL: ttl}
}

func quizQuestionsKey(quizID uint) string {
	return fmt.Sprintf("olp:quiz:%d:questions", quizID)
}

func preloadAnswers(db *gorm.DB) *gorm.DB {
	return db.Order("order_index asc, id asc")
}

// FindByIDs returns the questions that still exist, in no particular order.
func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	if len(ids) == 0 {
		return []model.Question{}, nil
	}
	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Preload("Answers", preloadAnswers).
		Where("id IN ?", ids).
		Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) FindByID(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.WithContext(ctx).Preload("Answers", preloadAnswers).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// ListByQuiz returns a quiz's questions ordered by order index then id.
func (r *QuestionRepository) ListByQuiz(ctx context.Context, quizID uint) ([]model.Question, error) {
	if qs, ok := r.cachedQuizQuestions(ctx, quizID); ok {
		return qs, nil
	}

	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Preload("Answers", preloadAnswers).
		Where("quiz_id = ?", quizID).
		Order("order_index asc, id asc").
		Find(&qs).Error
	if err != nil {
		return nil, err
	}

	r.cacheQuizQuestions(ctx, quizID, qs)
	return qs, nil
}

// ListLessonQuestionsByCourse returns the final-exam pool: every question of the course's
// lesson-level quizzes.
func (r *QuestionRepository) ListLessonQuestionsByCourse(ctx context.Context, courseID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Preload("Answers", preloadAnswers).
		Joins("JOIN quizzes ON quizzes.id = questions.quiz_id AND quizzes.deleted_at IS NULL").
		Where("quizzes.course_id = ? AND quizzes.lesson_id IS NOT NULL AND quizzes.is_final = ?", courseID, false).
		Order("questions.id asc").
		Find(&qs).Error
	return qs, err
}

// Create stores a question together with its answers.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	if err := r.DB.WithContext(ctx).Create(q).Error; err != nil {
		return err
	}
	r.invalidate(ctx, q.QuizID)
	return nil
}

func (r *QuestionRepository) UpdateImageURL(ctx context.Context, q *model.Question, url string) error {
	if err := r.DB.WithContext(ctx).Model(q).Update("image_url", url).Error; err != nil {
		return err
	}
	r.invalidate(ctx, q.QuizID)
	return nil
}

func (r *QuestionRepository) Delete(ctx context.Context, q *model.Question) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", q.ID).Delete(&model.Answer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Question{}, q.ID).Error
	})
	if err != nil {
		return err
	}
	r.invalidate(ctx, q.QuizID)
	return nil
}

func (r *QuestionRepository) FindAnswerByID(ctx context.Context, id uint) (*model.Answer, error) {
	var a model.Answer
	if err := r.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *QuestionRepository) DeleteAnswer(ctx context.Context, quizID uint, a *model.Answer) error {
	if err := r.DB.WithContext(ctx).Delete(&model.Answer{}, a.ID).Error; err != nil {
		return err
	}
	r.invalidate(ctx, quizID)
	return nil
}

func (r *QuestionRepository) cachedQuizQuestions(ctx context.Context, quizID uint) ([]model.Question, bool) {
	if r.Redis == nil {
		return nil, false
	}
	raw, err := r.Redis.Get(ctx, quizQuestionsKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("question cache read failed", zap.Uint("quizId", quizID), zap.Error(err))
		}
		return nil, false
	}
	var qs []model.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, false
	}
	return qs, true
}

func (r *QuestionRepository) cacheQuizQuestions(ctx context.Context, quizID uint, qs []model.Question) {
	if r.Redis == nil || r.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(qs)
	if err != nil {
		return
	}
	if err := r.Redis.Set(ctx, quizQuestionsKey(quizID), raw, r.CacheTTL).Err(); err != nil {
		logger.Log.Warn("question cache write failed", zap.Uint("quizId", quizID), zap.Error(err))
	}
}

func (r *QuestionRepository) invalidate(ctx context.Context, quizID uint) {
	if r.Redis == nil {
		return
	}
	if err := r.Redis.Del(ctx, quizQuestionsKey(quizID)).Err(); err != nil {
		logger.Log.Warn("question cache invalidation failed", zap.Uint("quizId", quizID), zap.Error(err))
	}
}
