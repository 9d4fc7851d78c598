package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"olp_backend/internal/model"
	"olp_backend/internal/repository"
	"olp_backend/internal/util"
	"olp_backend/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateQuizRequest struct {
	CourseID         uint   `json:"courseId" binding:"required" validate:"required"`
	LessonID         *uint  `json:"lessonId"`
	Title            string `json:"title" binding:"required" validate:"required,max=255"`
	PassingScore     int    `json:"passingScore" validate:"min=0,max=100"`
	TimeLimit        *int   `json:"timeLimit" validate:"omitempty,min=0"`
	ShuffleQuestions bool   `json:"shuffleQuestions"`
	AllowRetake      bool   `json:"allowRetake"`
	IsActive         *bool  `json:"isActive"`
}

type UpdateQuizSettingsRequest struct {
	Title            *string `json:"title" validate:"omitempty,min=1,max=255"`
	PassingScore     *int    `json:"passingScore" validate:"omitempty,min=0,max=100"`
	TimeLimit        *int    `json:"timeLimit" validate:"omitempty,min=0"`
	ShuffleQuestions *bool   `json:"shuffleQuestions"`
	AllowRetake      *bool   `json:"allowRetake"`
	IsActive         *bool   `json:"isActive"`
}

type AnswerRequest struct {
	Text       string `json:"text" validate:"required"`
	IsCorrect  bool   `json:"isCorrect"`
	OrderIndex *int   `json:"orderIndex"`
}

type AddQuestionRequest struct {
	Text       string             `json:"text" binding:"required" validate:"required"`
	Type       model.QuestionType `json:"type" binding:"required" validate:"required,oneof=MCQ MSQ TrueFalse ShortAnswer"`
	Points     int                `json:"points" validate:"min=1"`
	OrderIndex int                `json:"orderIndex"`
	Answers    []AnswerRequest    `json:"answers" validate:"dive"`
}

// FinalQuizSettings is the editable part of a course's final quiz plus the sampling facts.
type FinalQuizSettings struct {
	QuizID           uint   `json:"quizId"`
	CourseID         uint   `json:"courseId"`
	Title            string `json:"title"`
	PassingScore     int    `json:"passingScore"`
	TimeLimit        *int   `json:"timeLimit,omitempty"`
	ShuffleQuestions bool   `json:"shuffleQuestions"`
	IsActive         bool   `json:"isActive"`
	QuestionCount    int    `json:"questionCount"`
	PoolSize         int    `json:"poolSize"`
}

type UpdateFinalQuizSettingsRequest struct {
	Title            *string `json:"title" validate:"omitempty,min=1,max=255"`
	PassingScore     *int    `json:"passingScore" validate:"omitempty,min=0,max=100"`
	TimeLimit        *int    `json:"timeLimit" validate:"omitempty,min=0"`
	ShuffleQuestions *bool   `json:"shuffleQuestions"`
	IsActive         *bool   `json:"isActive"`
}

// QuizAdminService covers quiz authoring. Final quizzes get their questions from the course's
// lesson quizzes and cannot hold questions of their own.
type QuizAdminService struct {
	Quizzes   *repository.QuizRepository
	Questions *repository.QuestionRepository
	Engine    *QuizService
	Storage   *StorageService

	validate *validator.Validate
}

func NewQuizAdminService(quizzes *repository.QuizRepository, questions *repository.QuestionRepository, engine *QuizService, storage *StorageService) *QuizAdminService {
	return &QuizAdminService{
		Quizzes:   quizzes,
		Questions: questions,
		Engine:    engine,
		Storage:   storage,
		validate:  validator.New(),
	}
}

func (s *QuizAdminService) check(req interface{}) error {
	if err := s.validate.Struct(req); err != nil {
		return util.NewValidationError(err.Error())
	}
	return nil
}

func (s *QuizAdminService) CreateQuiz(ctx context.Context, req CreateQuizRequest) (*model.Quiz, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	quiz := &model.Quiz{
		CourseID:         req.CourseID,
		LessonID:         req.LessonID,
		Title:            req.Title,
		PassingScore:     req.PassingScore,
		TimeLimit:        req.TimeLimit,
		ShuffleQuestions: req.ShuffleQuestions,
		AllowRetake:      req.AllowRetake,
		IsActive:         req.IsActive == nil || *req.IsActive,
	}
	if err := s.Quizzes.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	logger.FromContext(ctx).Info("quiz created", zap.Uint("quizId", quiz.ID), zap.Uint("courseId", quiz.CourseID))
	return quiz, nil
}

func (s *QuizAdminService) ListCourseQuizzes(ctx context.Context, courseID uint) ([]model.Quiz, error) {
	return s.Quizzes.ListByCourse(ctx, courseID)
}

func (s *QuizAdminService) UpdateQuizSettings(ctx context.Context, quizID uint, req UpdateQuizSettingsRequest) (*model.Quiz, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.TimeLimit != nil {
		quiz.TimeLimit = req.TimeLimit
	}
	if req.ShuffleQuestions != nil {
		quiz.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.AllowRetake != nil {
		quiz.AllowRetake = *req.AllowRetake
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}

	if err := s.Quizzes.Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("update quiz %d: %w", quizID, err)
	}
	return quiz, nil
}

func (s *QuizAdminService) AddQuestion(ctx context.Context, quizID uint, req AddQuestionRequest) (*model.Question, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.IsFinal {
		return nil, util.ErrFinalQuizNotEditable
	}

	correct := 0
	for _, a := range req.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	if err := checkAnswerShape(req.Type, len(req.Answers), correct); err != nil {
		return nil, err
	}

	q := &model.Question{
		QuizID:     quiz.ID,
		Text:       req.Text,
		Type:       req.Type,
		Points:     req.Points,
		OrderIndex: req.OrderIndex,
		Answers:    make([]model.Answer, 0, len(req.Answers)),
	}
	for _, a := range req.Answers {
		q.Answers = append(q.Answers, model.Answer{Text: a.Text, IsCorrect: a.IsCorrect, OrderIndex: a.OrderIndex})
	}
	if err := s.Questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

func (s *QuizAdminService) DeleteQuestion(ctx context.Context, questionID uint) error {
	q, err := s.findQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if err := s.Questions.Delete(ctx, q); err != nil {
		return fmt.Errorf("delete question %d: %w", questionID, err)
	}
	logger.FromContext(ctx).Info("question deleted", zap.Uint("questionId", q.ID), zap.Uint("quizId", q.QuizID))
	return nil
}

// DeleteAnswer removes an option as long as the question stays well-formed for its type.
func (s *QuizAdminService) DeleteAnswer(ctx context.Context, answerID uint) error {
	a, err := s.Questions.FindAnswerByID(ctx, answerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrAnswerNotFound
	}
	if err != nil {
		return fmt.Errorf("load answer %d: %w", answerID, err)
	}
	q, err := s.findQuestion(ctx, a.QuestionID)
	if err != nil {
		return err
	}

	total, correct := 0, 0
	for _, other := range q.Answers {
		if other.ID == a.ID {
			continue
		}
		total++
		if other.IsCorrect {
			correct++
		}
	}
	if err := checkAnswerShape(q.Type, total, correct); err != nil {
		return err
	}
	if err := s.Questions.DeleteAnswer(ctx, q.QuizID, a); err != nil {
		return fmt.Errorf("delete answer %d: %w", answerID, err)
	}
	return nil
}

// UploadQuestionImage stores an image for a question and records its URL. Only content that
// sniffs as an image is accepted.
func (s *QuizAdminService) UploadQuestionImage(ctx context.Context, questionID uint, r io.Reader, size int64) (*model.Question, error) {
	if size <= 0 || size > util.MaxQuestionImageBytes {
		return nil, util.NewValidationError(fmt.Sprintf("image must be between 1 byte and %d bytes", util.MaxQuestionImageBytes))
	}
	q, err := s.findQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read image: %w", err)
	}
	head = head[:n]
	mimeType, err := util.ValidateMimeType(bytes.NewReader(head), []string{util.MimeImage})
	if err != nil {
		return nil, util.NewValidationError(err.Error())
	}

	name := ObjectName(fmt.Sprintf("questions/%d", q.ID), util.ExtensionForImage(mimeType))
	url, err := s.Storage.Upload(ctx, name, io.MultiReader(bytes.NewReader(head), r), size, mimeType)
	if err != nil {
		return nil, fmt.Errorf("upload image of question %d: %w", q.ID, err)
	}
	if err := s.Questions.UpdateImageURL(ctx, q, url); err != nil {
		return nil, fmt.Errorf("record image of question %d: %w", q.ID, err)
	}
	q.ImageURL = url
	return q, nil
}

func (s *QuizAdminService) GetFinalQuizSettings(ctx context.Context, courseID uint) (*FinalQuizSettings, error) {
	quiz, err := s.Engine.EnsureFinalQuiz(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.finalSettings(ctx, quiz)
}

func (s *QuizAdminService) UpdateFinalQuizSettings(ctx context.Context, courseID uint, req UpdateFinalQuizSettingsRequest) (*FinalQuizSettings, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	quiz, err := s.Engine.EnsureFinalQuiz(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.TimeLimit != nil {
		quiz.TimeLimit = req.TimeLimit
	}
	if req.ShuffleQuestions != nil {
		quiz.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}
	if err := s.Quizzes.Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("update final quiz of course %d: %w", courseID, err)
	}
	return s.finalSettings(ctx, quiz)
}

func (s *QuizAdminService) finalSettings(ctx context.Context, quiz *model.Quiz) (*FinalQuizSettings, error) {
	pool, err := s.Questions.ListLessonQuestionsByCourse(ctx, quiz.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load final pool of course %d: %w", quiz.CourseID, err)
	}
	count := s.Engine.Selector.SampleSize()
	if count > len(pool) {
		count = len(pool)
	}
	return &FinalQuizSettings{
		QuizID:           quiz.ID,
		CourseID:         quiz.CourseID,
		Title:            quiz.Title,
		PassingScore:     quiz.PassingScore,
		TimeLimit:        quiz.TimeLimit,
		ShuffleQuestions: quiz.ShuffleQuestions,
		IsActive:         quiz.IsActive,
		QuestionCount:    count,
		PoolSize:         len(pool),
	}, nil
}

func (s *QuizAdminService) findQuiz(ctx context.Context, id uint) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz %d: %w", id, err)
	}
	return quiz, nil
}

func (s *QuizAdminService) findQuestion(ctx context.Context, id uint) (*model.Question, error) {
	q, err := s.Questions.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load question %d: %w", id, err)
	}
	return q, nil
}

// checkAnswerShape enforces the option rules of each question type.
func checkAnswerShape(t model.QuestionType, total, correct int) error {
	switch t {
	case model.QuestionTypeMCQ:
		if total < 2 || correct != 1 {
			return util.NewValidationError("MCQ questions need at least two answers and exactly one correct answer")
		}
	case model.QuestionTypeTrueFalse:
		if total != 2 || correct != 1 {
			return util.NewValidationError("TrueFalse questions need exactly two answers and one correct answer")
		}
	case model.QuestionTypeMSQ:
		if total < 2 || correct < 1 {
			return util.NewValidationError("MSQ questions need at least two answers and at least one correct answer")
		}
	case model.QuestionTypeShortAnswer:
		if total != 0 {
			return util.NewValidationError("ShortAnswer questions take no answer options")
		}
	default:
		return util.NewValidationError(fmt.Sprintf("unknown question type %q", t))
	}
	return nil
}
