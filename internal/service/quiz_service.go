package service

import (
	"context"
	"errors"
	"fmt"
	"olp_backend/internal/config"
	"olp_backend/internal/model"
	"olp_backend/internal/util"
	"olp_backend/pkg/logger"
	"olp_backend/pkg/monitoring"
	"olp_backend/pkg/tracing"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// attempt numbers are assigned as count+1; a unique index rejects concurrent duplicates
const maxAttemptNumberRetries = 3

type SubmitQuizRequest struct {
	QuizID    uint               `json:"-"`
	AttemptID *uint              `json:"attemptId,omitempty"`
	Answers   []QuestionResponse `json:"answers" binding:"dive"`
}

type finalQuizDefaults struct {
	Title        string
	PassingScore int
}

// QuizService drives the attempt lifecycle: start, resume, submit and review.
type QuizService struct {
	Quizzes   QuizCatalog
	Questions QuestionBank
	Attempts  AttemptStore
	Selector  *QuestionSelector

	now func() time.Time

	mu            sync.RWMutex
	finalDefaults finalQuizDefaults
}

func NewQuizService(quizzes QuizCatalog, questions QuestionBank, attempts AttemptStore, cfg config.QuizConfig) *QuizService {
	s := &QuizService{
		Quizzes:   quizzes,
		Questions: questions,
		Attempts:  attempts,
		Selector:  NewQuestionSelector(questions, attempts, cfg.FinalQuestionCount),
		now:       time.Now,
	}
	s.ApplyConfig(cfg)
	return s
}

// ApplyConfig swaps in reloadable quiz settings. Existing final quizzes keep their stored values.
func (s *QuizService) ApplyConfig(cfg config.QuizConfig) {
	d := finalQuizDefaults{Title: cfg.FinalTitle, PassingScore: cfg.FinalPassingScore}
	if d.Title == "" {
		d.Title = util.DefaultFinalTitle
	}
	if d.PassingScore < 0 || d.PassingScore > 100 {
		d.PassingScore = util.DefaultFinalPassingScore
	}
	s.mu.Lock()
	s.finalDefaults = d
	s.mu.Unlock()
	s.Selector.SetSampleSize(cfg.FinalQuestionCount)
}

func (s *QuizService) defaults() finalQuizDefaults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finalDefaults
}

// GetQuizForLearner returns a quiz without correctness flags. Final quizzes have no questions of
// their own, so only their metadata is returned.
func (s *QuizService) GetQuizForLearner(ctx context.Context, quizID uint) (*QuizView, error) {
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.IsFinal {
		v := newQuizView(quiz, nil)
		return &v, nil
	}
	qs, err := s.Selector.FixedQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	v := newQuizView(quiz, shuffleForDisplay(qs, quiz.ShuffleQuestions, quiz.ShuffleQuestions))
	return &v, nil
}

// StartAttempt opens a new attempt on a quiz. Final quizzes are routed to the final-exam flow.
func (s *QuizService) StartAttempt(ctx context.Context, userID, quizID uint) (view *AttemptView, err error) {
	ctx, span := tracing.StartSpan(ctx, "QuizService.StartAttempt",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("quiz.id", int64(quizID)))
	defer func() { tracing.EndSpan(span, err) }()

	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.IsFinal {
		return s.startFinal(ctx, userID, quiz)
	}

	qs, err := s.Selector.FixedQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	attempt, err := s.createAttempt(ctx, quiz, userID, nil)
	if err != nil {
		return nil, err
	}

	s.recordStart(ctx, quiz, attempt, false)
	return s.attemptView(quiz, attempt, shuffleForDisplay(qs, quiz.ShuffleQuestions, quiz.ShuffleQuestions), false), nil
}

// StartFinalAttempt resumes the caller's open final-exam attempt for the course or starts a new
// one, creating the course's final quiz on first use.
func (s *QuizService) StartFinalAttempt(ctx context.Context, userID, courseID uint) (view *AttemptView, err error) {
	ctx, span := tracing.StartSpan(ctx, "QuizService.StartFinalAttempt",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("course.id", int64(courseID)))
	defer func() { tracing.EndSpan(span, err) }()

	quiz, err := s.EnsureFinalQuiz(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.startFinal(ctx, userID, quiz)
}

func (s *QuizService) startFinal(ctx context.Context, userID uint, quiz *model.Quiz) (*AttemptView, error) {
	if !quiz.IsActive {
		return nil, util.ErrQuizInactive
	}

	open, err := s.Attempts.FindInProgress(ctx, userID, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("find open attempt: %w", err)
	}
	if open != nil {
		qs, err := s.Selector.ResolveFinal(ctx, open, quiz.CourseID)
		if err != nil {
			return nil, err
		}
		s.recordStart(ctx, quiz, open, true)
		return s.attemptView(quiz, open, shuffleForDisplay(qs, false, quiz.ShuffleQuestions), true), nil
	}

	qs, ids, err := s.Selector.DrawFinal(ctx, quiz.CourseID)
	if err != nil {
		return nil, err
	}
	attempt, err := s.createAttempt(ctx, quiz, userID, ids)
	if err != nil {
		return nil, err
	}
	s.recordStart(ctx, quiz, attempt, false)
	return s.attemptView(quiz, attempt, shuffleForDisplay(qs, false, quiz.ShuffleQuestions), false), nil
}

// EnsureFinalQuiz returns the course's final quiz, creating it with the configured defaults
// when missing. A lost creation race resolves to the row that won.
func (s *QuizService) EnsureFinalQuiz(ctx context.Context, courseID uint) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindFinalByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("find final quiz of course %d: %w", courseID, err)
	}
	if quiz != nil {
		return quiz, nil
	}

	d := s.defaults()
	quiz = &model.Quiz{
		CourseID:         courseID,
		Title:            d.Title,
		PassingScore:     d.PassingScore,
		ShuffleQuestions: true,
		AllowRetake:      false,
		IsActive:         true,
		IsFinal:          true,
	}
	if createErr := s.Quizzes.Create(ctx, quiz); createErr != nil {
		winner, err := s.Quizzes.FindFinalByCourse(ctx, courseID)
		if err == nil && winner != nil {
			return winner, nil
		}
		return nil, fmt.Errorf("create final quiz of course %d: %w", courseID, createErr)
	}

	logger.FromContext(ctx).Info("final quiz created", zap.Uint("courseId", courseID), zap.Uint("quizId", quiz.ID))
	return quiz, nil
}

// SubmitAttempt grades and closes an attempt. Without an attempt id a new attempt is created and
// submitted in the same transaction.
func (s *QuizService) SubmitAttempt(ctx context.Context, userID uint, req SubmitQuizRequest) (result *SubmitResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "QuizService.SubmitAttempt",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("quiz.id", int64(req.QuizID)))
	defer func() { tracing.EndSpan(span, err) }()

	quiz, err := s.loadQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}
	if req.AttemptID == nil || *req.AttemptID == 0 {
		return s.submitFresh(ctx, userID, quiz, req.Answers)
	}

	attempt, err := s.loadAttempt(ctx, *req.AttemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrAttemptForbidden
	}
	if attempt.QuizID != quiz.ID {
		return nil, util.ErrAttemptQuizMismatch
	}
	if attempt.IsSubmitted() {
		return nil, util.ErrAttemptSubmitted
	}

	now := s.now()
	if limit := quiz.TimeLimitDuration(); limit > 0 && now.Sub(attempt.StartedAt) > limit {
		return nil, s.expire(ctx, quiz, attempt, now)
	}

	var qs []model.Question
	if quiz.IsFinal {
		qs, err = s.Selector.ResolveFinal(ctx, attempt, quiz.CourseID)
	} else {
		qs, err = s.Selector.FixedQuestions(ctx, quiz.ID)
	}
	if err != nil {
		return nil, err
	}

	graded := gradeSubmission(qs, req.Answers)
	attempt.Score = graded.Score
	attempt.SubmittedAt = &now
	if err := s.Attempts.Submit(ctx, attempt, graded.Answers); err != nil {
		return nil, wrapStoreError("submit attempt", attempt.ID, err)
	}

	s.recordSubmit(ctx, quiz, attempt, graded)
	return s.submitResult(quiz, attempt, graded), nil
}

func (s *QuizService) submitFresh(ctx context.Context, userID uint, quiz *model.Quiz, responses []QuestionResponse) (*SubmitResult, error) {
	var (
		qs        []model.Question
		selection []uint
		err       error
	)
	if quiz.IsFinal && !quiz.IsActive {
		return nil, util.ErrQuizInactive
	}
	if quiz.IsFinal {
		qs, selection, err = s.Selector.DrawFinal(ctx, quiz.CourseID)
	} else {
		qs, err = s.Selector.FixedQuestions(ctx, quiz.ID)
	}
	if err != nil {
		return nil, err
	}

	graded := gradeSubmission(qs, responses)
	now := s.now()
	for i := 0; i < maxAttemptNumberRetries; i++ {
		attempt, err := s.nextAttempt(ctx, quiz, userID, now, selection)
		if err != nil {
			return nil, err
		}
		attempt.Score = graded.Score
		attempt.SubmittedAt = &now

		answers := make([]model.QuizAttemptAnswer, len(graded.Answers))
		copy(answers, graded.Answers)
		err = s.Attempts.Submit(ctx, attempt, answers)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("submit new attempt: %w", err)
		}

		graded.Answers = answers
		s.recordStart(ctx, quiz, attempt, false)
		s.recordSubmit(ctx, quiz, attempt, graded)
		return s.submitResult(quiz, attempt, graded), nil
	}
	return nil, fmt.Errorf("submit new attempt: attempt number contention on quiz %d", quiz.ID)
}

// expire consumes an attempt whose time limit has passed.
func (s *QuizService) expire(ctx context.Context, quiz *model.Quiz, attempt *model.QuizAttempt, now time.Time) error {
	attempt.Score = 0
	attempt.SubmittedAt = &now
	if err := s.Attempts.Expire(ctx, attempt); err != nil {
		return wrapStoreError("expire attempt", attempt.ID, err)
	}

	monitoring.QuizAttemptsSubmitted.WithLabelValues(quizMode(quiz), "expired").Inc()
	logger.FromContext(ctx).Info("attempt expired",
		zap.Uint("attemptId", attempt.ID),
		zap.Uint("quizId", quiz.ID),
		zap.Uint("userId", attempt.UserID),
		zap.Duration("elapsed", now.Sub(attempt.StartedAt)),
	)
	return util.ErrTimeLimitExceeded
}

// ReviewAttempt returns the caller's attempt with its recorded answers. Correct answers are
// withheld until the attempt is submitted.
func (s *QuizService) ReviewAttempt(ctx context.Context, attemptID, userID uint) (*AttemptReview, error) {
	attempt, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrAttemptForbidden
	}
	return s.review(ctx, attempt, !attempt.IsSubmitted())
}

// ReviewAttemptAsAdmin returns any attempt with full correctness information.
func (s *QuizService) ReviewAttemptAsAdmin(ctx context.Context, attemptID uint) (*AttemptReview, error) {
	attempt, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return s.review(ctx, attempt, false)
}

func (s *QuizService) review(ctx context.Context, attempt *model.QuizAttempt, redact bool) (review *AttemptReview, err error) {
	ctx, span := tracing.StartSpan(ctx, "QuizService.ReviewAttempt", attribute.Int64("attempt.id", int64(attempt.ID)))
	defer func() { tracing.EndSpan(span, err) }()

	quiz, err := s.loadQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Attempts.GetAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers of attempt %d: %w", attempt.ID, err)
	}
	qs, err := s.Selector.ReviewQuestions(ctx, quiz, attempt, answers)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[uint]*model.QuizAttemptAnswer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	review = &AttemptReview{
		Attempt:      attempt,
		QuizTitle:    quiz.Title,
		PassingScore: quiz.PassingScore,
		Passed:       attempt.IsSubmitted() && attempt.Score >= quiz.PassingScore,
		Redacted:     redact,
		Questions:    make([]ReviewQuestion, 0, len(qs)),
	}
	for _, q := range qs {
		review.Questions = append(review.Questions, newReviewQuestion(q, byQuestion[q.ID], redact))
	}
	return review, nil
}

// ListAttemptsForQuiz returns the caller's attempts on one quiz, newest first.
func (s *QuizService) ListAttemptsForQuiz(ctx context.Context, userID, quizID uint) ([]model.QuizAttempt, error) {
	if _, err := s.loadQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	all, err := s.ListMyAttempts(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.QuizAttempt, 0, len(all))
	for _, a := range all {
		if a.QuizID == quizID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *QuizService) ListMyAttempts(ctx context.Context, userID uint) ([]model.QuizAttempt, error) {
	attempts, err := s.Attempts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts of user %d: %w", userID, err)
	}
	return attempts, nil
}

func (s *QuizService) createAttempt(ctx context.Context, quiz *model.Quiz, userID uint, selection []uint) (*model.QuizAttempt, error) {
	for i := 0; i < maxAttemptNumberRetries; i++ {
		attempt, err := s.nextAttempt(ctx, quiz, userID, s.now(), selection)
		if err != nil {
			return nil, err
		}
		err = s.Attempts.Create(ctx, attempt)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create attempt: %w", err)
		}
		return attempt, nil
	}
	return nil, fmt.Errorf("create attempt: attempt number contention on quiz %d", quiz.ID)
}

// nextAttempt applies the retake policy and numbers the attempt after the user's existing ones.
// Final quizzes are always re-attemptable.
func (s *QuizService) nextAttempt(ctx context.Context, quiz *model.Quiz, userID uint, startedAt time.Time, selection []uint) (*model.QuizAttempt, error) {
	count, err := s.Attempts.CountByUserAndQuiz(ctx, userID, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if !quiz.IsFinal && !quiz.AllowRetake && count > 0 {
		return nil, util.ErrRetakeNotAllowed
	}

	ids := make([]uint, len(selection))
	copy(ids, selection)
	return &model.QuizAttempt{
		QuizID:              quiz.ID,
		UserID:              userID,
		AttemptNumber:       int(count) + 1,
		StartedAt:           startedAt,
		SelectedQuestionIDs: ids,
	}, nil
}

func (s *QuizService) loadQuiz(ctx context.Context, id uint) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && quiz == nil) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz %d: %w", id, err)
	}
	return quiz, nil
}

func (s *QuizService) loadAttempt(ctx context.Context, id uint) (*model.QuizAttempt, error) {
	attempt, err := s.Attempts.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && attempt == nil) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt %d: %w", id, err)
	}
	return attempt, nil
}

func (s *QuizService) attemptView(quiz *model.Quiz, attempt *model.QuizAttempt, qs []model.Question, resumed bool) *AttemptView {
	v := &AttemptView{
		Attempt: attempt,
		Quiz:    newQuizView(quiz, qs),
		Resumed: resumed,
	}
	if limit := quiz.TimeLimitDuration(); limit > 0 {
		expiresAt := attempt.StartedAt.Add(limit)
		v.ExpiresAt = &expiresAt
	}
	return v
}

func (s *QuizService) submitResult(quiz *model.Quiz, attempt *model.QuizAttempt, graded gradedSubmission) *SubmitResult {
	return &SubmitResult{
		AttemptID:     attempt.ID,
		QuizID:        quiz.ID,
		AttemptNumber: attempt.AttemptNumber,
		Score:         attempt.Score,
		Passed:        attempt.Score >= quiz.PassingScore,
		EarnedPoints:  graded.EarnedPoints,
		TotalPoints:   graded.TotalPoints,
		CorrectCount:  graded.CorrectCount,
		QuestionCount: graded.QuestionCount,
		SubmittedAt:   *attempt.SubmittedAt,
		Answers:       graded.Answers,
	}
}

func (s *QuizService) recordStart(ctx context.Context, quiz *model.Quiz, attempt *model.QuizAttempt, resumed bool) {
	monitoring.QuizAttemptsStarted.WithLabelValues(quizMode(quiz), strconv.FormatBool(resumed)).Inc()
	msg := "attempt started"
	if resumed {
		msg = "attempt resumed"
	}
	logger.FromContext(ctx).Info(msg,
		zap.Uint("attemptId", attempt.ID),
		zap.Uint("quizId", quiz.ID),
		zap.Uint("userId", attempt.UserID),
		zap.Int("attemptNumber", attempt.AttemptNumber),
		zap.Int("selected", len(attempt.SelectedQuestionIDs)),
	)
}

func (s *QuizService) recordSubmit(ctx context.Context, quiz *model.Quiz, attempt *model.QuizAttempt, graded gradedSubmission) {
	outcome := "failed"
	if attempt.Score >= quiz.PassingScore {
		outcome = "passed"
	}
	monitoring.QuizAttemptsSubmitted.WithLabelValues(quizMode(quiz), outcome).Inc()
	monitoring.QuizScore.Observe(float64(attempt.Score))
	logger.FromContext(ctx).Info("attempt submitted",
		zap.Uint("attemptId", attempt.ID),
		zap.Uint("quizId", quiz.ID),
		zap.Uint("userId", attempt.UserID),
		zap.Int("score", attempt.Score),
		zap.Int("earned", graded.EarnedPoints),
		zap.Int("total", graded.TotalPoints),
	)
}

func quizMode(quiz *model.Quiz) string {
	if quiz.IsFinal {
		return "final"
	}
	return "fixed"
}

// wrapStoreError keeps business errors from the store untouched.
func wrapStoreError(op string, attemptID uint, err error) error {
	if util.KindOf(err) != util.KindInternal {
		return err
	}
	return fmt.Errorf("%s %d: %w", op, attemptID, err)
}
