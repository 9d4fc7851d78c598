package service

import (
	"context"
	"olp_backend/internal/config"
	"olp_backend/internal/model"
	"olp_backend/internal/util"
	"sort"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
)

type fakeCatalog struct {
	mu      sync.Mutex
	nextID  uint
	quizzes map[uint]*model.Quiz
	creates int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{quizzes: map[uint]*model.Quiz{}}
}

func (c *fakeCatalog) FindByID(ctx context.Context, id uint) (*model.Quiz, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *q
	return &cp, nil
}

func (c *fakeCatalog) FindFinalByCourse(ctx context.Context, courseID uint) (*model.Quiz, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range c.quizzes {
		if q.IsFinal && q.CourseID == courseID {
			cp := *q
			return &cp, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) Create(ctx context.Context, quiz *model.Quiz) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if quiz.IsFinal {
		for _, q := range c.quizzes {
			if q.IsFinal && q.CourseID == quiz.CourseID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	c.nextID++
	c.creates++
	quiz.ID = c.nextID
	cp := *quiz
	c.quizzes[quiz.ID] = &cp
	return nil
}

func (c *fakeCatalog) update(quiz *model.Quiz) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *quiz
	c.quizzes[quiz.ID] = &cp
}

type fakeBank struct {
	mu        sync.Mutex
	catalog   *fakeCatalog
	questions map[uint]model.Question
}

func (b *fakeBank) FindByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []model.Question{}
	// map iteration keeps the result order arbitrary
	want := map[uint]bool{}
	for _, id := range ids {
		want[id] = true
	}
	for id, q := range b.questions {
		if want[id] {
			out = append(out, q)
		}
	}
	return out, nil
}

func (b *fakeBank) ListByQuiz(ctx context.Context, quizID uint) ([]model.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []model.Question{}
	for _, q := range b.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (b *fakeBank) ListLessonQuestionsByCourse(ctx context.Context, courseID uint) ([]model.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalog.mu.Lock()
	defer b.catalog.mu.Unlock()
	out := []model.Question{}
	for _, q := range b.questions {
		quiz, ok := b.catalog.quizzes[q.QuizID]
		if ok && quiz.CourseID == courseID && quiz.LessonID != nil && !quiz.IsFinal {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *fakeBank) remove(ids ...uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		delete(b.questions, id)
	}
}

type fakeStore struct {
	mu               sync.Mutex
	nextID           uint
	attempts         map[uint]*model.QuizAttempt
	answers          map[uint][]model.QuizAttemptAnswer
	selectionUpdates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		attempts: map[uint]*model.QuizAttempt{},
		answers:  map[uint][]model.QuizAttemptAnswer{},
	}
}

func cloneAttempt(a *model.QuizAttempt) *model.QuizAttempt {
	cp := *a
	cp.SelectedQuestionIDs = append([]uint{}, a.SelectedQuestionIDs...)
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		cp.SubmittedAt = &t
	}
	return &cp
}

func (s *fakeStore) insertLocked(a *model.QuizAttempt) error {
	for _, existing := range s.attempts {
		if existing.QuizID == a.QuizID && existing.UserID == a.UserID && existing.AttemptNumber == a.AttemptNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	s.nextID++
	a.ID = s.nextID
	s.attempts[a.ID] = cloneAttempt(a)
	return nil
}

func (s *fakeStore) Create(ctx context.Context, a *model.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(a)
}

func (s *fakeStore) FindByID(ctx context.Context, id uint) (*model.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneAttempt(a), nil
}

func (s *fakeStore) ListByUser(ctx context.Context, userID uint) ([]model.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.QuizAttempt{}
	for _, a := range s.attempts {
		if a.UserID == userID {
			out = append(out, *cloneAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *fakeStore) CountByUserAndQuiz(ctx context.Context, userID, quizID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) FindInProgress(ctx context.Context, userID, quizID uint) (*model.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.QuizAttempt
	for _, a := range s.attempts {
		if a.UserID == userID && a.QuizID == quizID && a.SubmittedAt == nil {
			if latest == nil || a.AttemptNumber > latest.AttemptNumber {
				latest = a
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneAttempt(latest), nil
}

func (s *fakeStore) UpdateSelection(ctx context.Context, attemptID uint, ids []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok || a.SubmittedAt != nil {
		return util.ErrAttemptSubmitted
	}
	a.SelectedQuestionIDs = append([]uint{}, ids...)
	s.selectionUpdates++
	return nil
}

func (s *fakeStore) Submit(ctx context.Context, a *model.QuizAttempt, answers []model.QuizAttemptAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		if err := s.insertLocked(a); err != nil {
			return err
		}
	} else {
		stored, ok := s.attempts[a.ID]
		if !ok || stored.SubmittedAt != nil {
			return util.ErrAttemptSubmitted
		}
		t := *a.SubmittedAt
		stored.SubmittedAt = &t
		stored.Score = a.Score
	}
	for i := range answers {
		answers[i].AttemptID = a.ID
	}
	s.answers[a.ID] = append([]model.QuizAttemptAnswer{}, answers...)
	return nil
}

func (s *fakeStore) Expire(ctx context.Context, a *model.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.attempts[a.ID]
	if !ok || stored.SubmittedAt != nil {
		return util.ErrAttemptSubmitted
	}
	t := *a.SubmittedAt
	stored.SubmittedAt = &t
	stored.Score = 0
	return nil
}

func (s *fakeStore) GetAnswers(ctx context.Context, attemptID uint) ([]model.QuizAttemptAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.QuizAttemptAnswer{}, s.answers[attemptID]...), nil
}

type fixture struct {
	catalog *fakeCatalog
	bank    *fakeBank
	store   *fakeStore
	svc     *QuizService
	clock   time.Time

	nextQuestionID uint
	nextAnswerID   uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog: newFakeCatalog(),
		store:   newFakeStore(),
		clock:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.bank = &fakeBank{catalog: f.catalog, questions: map[uint]model.Question{}}
	f.svc = NewQuizService(f.catalog, f.bank, f.store, config.QuizConfig{
		FinalQuestionCount: 10,
		FinalTitle:         "Final Quiz",
		FinalPassingScore:  70,
	})
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) addQuiz(q model.Quiz) *model.Quiz {
	if err := f.catalog.Create(context.Background(), &q); err != nil {
		panic(err)
	}
	return &q
}

func (f *fixture) addLessonQuiz(courseID uint) *model.Quiz {
	lessonID := courseID*100 + uint(len(f.catalog.quizzes)+1)
	return f.addQuiz(model.Quiz{
		CourseID:     courseID,
		LessonID:     &lessonID,
		Title:        "Lesson quiz",
		PassingScore: 50,
		IsActive:     true,
		AllowRetake:  true,
	})
}

type answerDef struct {
	text    string
	correct bool
}

func (f *fixture) addQuestion(quizID uint, typ model.QuestionType, points int, answers ...answerDef) model.Question {
	f.nextQuestionID++
	q := model.Question{
		QuizID:     quizID,
		Text:       "question",
		Type:       typ,
		Points:     points,
		OrderIndex: int(f.nextQuestionID),
	}
	q.ID = f.nextQuestionID
	for _, a := range answers {
		f.nextAnswerID++
		ans := model.Answer{QuestionID: q.ID, Text: a.text, IsCorrect: a.correct}
		ans.ID = f.nextAnswerID
		q.Answers = append(q.Answers, ans)
	}
	f.bank.mu.Lock()
	f.bank.questions[q.ID] = q
	f.bank.mu.Unlock()
	return q
}

// addPool adds n single-point MCQ questions to a new lesson quiz of the course.
func (f *fixture) addPool(courseID uint, n int) []model.Question {
	quiz := f.addLessonQuiz(courseID)
	out := make([]model.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.addQuestion(quiz.ID, model.QuestionTypeMCQ, 1, answerDef{"right", true}, answerDef{"wrong", false}))
	}
	return out
}

func correctResponses(qs []model.Question) []QuestionResponse {
	out := make([]QuestionResponse, 0, len(qs))
	for _, q := range qs {
		resp := QuestionResponse{QuestionID: q.ID}
		ids := q.CorrectAnswerIDs()
		switch q.Type {
		case model.QuestionTypeMSQ:
			resp.SelectedAnswerIDs = ids
		default:
			if len(ids) > 0 {
				id := ids[0]
				resp.SelectedAnswerID = &id
			}
		}
		out = append(out, resp)
	}
	return out
}

func uintPtr(v uint) *uint { return &v }

func intPtr(v int) *int { return &v }

func questionIDs(qs []LearnerQuestion) []uint {
	out := make([]uint, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}
