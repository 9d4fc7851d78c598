package service

import (
	"context"
	"fmt"
	"math/rand"
	"olp_backend/internal/model"
	"olp_backend/internal/util"
	"olp_backend/pkg/logger"
	"olp_backend/pkg/monitoring"
	"sync/atomic"

	"go.uber.org/zap"
)

// QuestionSelector decides which questions an attempt contains. Final-exam selections are
// persisted on the attempt so that resuming, submitting and reviewing see the same set.
type QuestionSelector struct {
	Bank     QuestionBank
	Attempts AttemptStore

	sampleSize atomic.Int64
	perm       func(n int) []int
}

func NewQuestionSelector(bank QuestionBank, attempts AttemptStore, sampleSize int) *QuestionSelector {
	s := &QuestionSelector{Bank: bank, Attempts: attempts, perm: rand.Perm}
	s.SetSampleSize(sampleSize)
	return s
}

// SetSampleSize changes the final-exam sample size for selections drawn from now on.
func (s *QuestionSelector) SetSampleSize(n int) {
	if n <= 0 {
		n = util.DefaultFinalQuestionCount
	}
	s.sampleSize.Store(int64(n))
}

func (s *QuestionSelector) SampleSize() int {
	return int(s.sampleSize.Load())
}

// FixedQuestions returns a quiz's own questions ordered by order index then id.
func (s *QuestionSelector) FixedQuestions(ctx context.Context, quizID uint) ([]model.Question, error) {
	qs, err := s.Bank.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions of quiz %d: %w", quizID, err)
	}
	return qs, nil
}

// DrawFinal samples min(sample size, pool size) questions without replacement from the
// course's lesson quizzes.
func (s *QuestionSelector) DrawFinal(ctx context.Context, courseID uint) ([]model.Question, []uint, error) {
	pool, err := s.Bank.ListLessonQuestionsByCourse(ctx, courseID)
	if err != nil {
		return nil, nil, fmt.Errorf("load final pool of course %d: %w", courseID, err)
	}
	if len(pool) == 0 {
		return nil, nil, util.ErrNoQuestionsAvailable
	}

	n := s.SampleSize()
	if n > len(pool) {
		n = len(pool)
	}
	picked := make([]model.Question, 0, n)
	ids := make([]uint, 0, n)
	for _, idx := range s.perm(len(pool))[:n] {
		picked = append(picked, pool[idx])
		ids = append(ids, pool[idx].ID)
	}
	return picked, ids, nil
}

// ResolveFinal returns the questions of a final-exam attempt in selection order. Ids that no
// longer resolve are skipped; when none resolve, or nothing was selected, a fresh sample is
// drawn and written back to the attempt.
func (s *QuestionSelector) ResolveFinal(ctx context.Context, attempt *model.QuizAttempt, courseID uint) ([]model.Question, error) {
	if len(attempt.SelectedQuestionIDs) > 0 {
		qs, err := s.lookupOrdered(ctx, attempt.SelectedQuestionIDs)
		if err != nil {
			return nil, err
		}
		if len(qs) > 0 {
			return qs, nil
		}
	}

	qs, ids, err := s.DrawFinal(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.Attempts.UpdateSelection(ctx, attempt.ID, ids); err != nil {
		return nil, fmt.Errorf("persist selection of attempt %d: %w", attempt.ID, err)
	}

	monitoring.FinalSelectionRerolls.Inc()
	logger.FromContext(ctx).Info("final selection re-rolled",
		zap.Uint("attemptId", attempt.ID),
		zap.Int("previous", len(attempt.SelectedQuestionIDs)),
		zap.Int("selected", len(ids)),
	)
	attempt.SelectedQuestionIDs = ids
	return qs, nil
}

// ReviewQuestions resolves an attempt's questions without writing anything. Final-exam
// attempts fall back to the questions recorded in their answers when the selection is empty
// or no longer resolves.
func (s *QuestionSelector) ReviewQuestions(ctx context.Context, quiz *model.Quiz, attempt *model.QuizAttempt, answers []model.QuizAttemptAnswer) ([]model.Question, error) {
	if !quiz.IsFinal {
		return s.FixedQuestions(ctx, quiz.ID)
	}

	if len(attempt.SelectedQuestionIDs) > 0 {
		qs, err := s.lookupOrdered(ctx, attempt.SelectedQuestionIDs)
		if err != nil {
			return nil, err
		}
		if len(qs) > 0 {
			return qs, nil
		}
	}

	ids := make([]uint, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}
	return s.lookupOrdered(ctx, ids)
}

func (s *QuestionSelector) lookupOrdered(ctx context.Context, ids []uint) ([]model.Question, error) {
	found, err := s.Bank.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load selected questions: %w", err)
	}
	return orderByIDs(found, ids), nil
}

// orderByIDs arranges qs in the order of ids, dropping ids with no question.
func orderByIDs(qs []model.Question, ids []uint) []model.Question {
	byID := make(map[uint]model.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
			delete(byID, id)
		}
	}
	return out
}

// shuffleForDisplay returns a copy of qs for presentation. Question order is permuted only when
// shuffleQuestions is set; answer order follows shuffleAnswers. Stored data is never reordered.
func shuffleForDisplay(qs []model.Question, shuffleQuestions, shuffleAnswers bool) []model.Question {
	out := make([]model.Question, len(qs))
	copy(out, qs)
	if shuffleQuestions {
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	for i := range out {
		answers := make([]model.Answer, len(out[i].Answers))
		copy(answers, out[i].Answers)
		if shuffleAnswers {
			rand.Shuffle(len(answers), func(a, b int) { answers[a], answers[b] = answers[b], answers[a] })
		}
		out[i].Answers = answers
	}
	return out
}
