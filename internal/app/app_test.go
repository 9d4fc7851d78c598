package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"olp_backend/internal/config"
	"olp_backend/internal/model"
	"olp_backend/internal/service"
	"olp_backend/internal/util"
	"olp_backend/pkg/database"
	"olp_backend/pkg/security"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-at-least-32-characters"

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app *App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		Server:  config.ServerConfig{Port: "0", Mode: gin.TestMode},
		JWT:     config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()},
		Quiz: config.QuizConfig{
			FinalQuestionCount: 10,
			FinalTitle:         "Final Quiz",
			FinalPassingScore:  70,
		},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit: config.RateLimitConfig{MaxRequests: 100000, WindowMinutes: 1},
	}
	return &testServer{app: New(cfg, db, nil)}
}

func token(t *testing.T, userID uint, role model.UserRole) string {
	t.Helper()
	tok, err := util.GenerateJWT(userID, role, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}) (int, apiResponse, http.Header) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp, w.Header()
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// createLessonQuiz authors a lesson quiz with one MCQ and returns the quiz and correct answer ids.
func (s *testServer) createLessonQuiz(t *testing.T, instructor string, courseID, lessonID uint) (model.Quiz, model.Question, uint) {
	t.Helper()
	code, resp, _ := s.do(t, http.MethodPost, "/api/admin/quizzes", instructor, service.CreateQuizRequest{
		CourseID:     courseID,
		LessonID:     &lessonID,
		Title:        "Lesson quiz",
		PassingScore: 50,
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	quiz := decode[model.Quiz](t, resp.Data)

	code, resp, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/admin/quizzes/%d/questions", quiz.ID), instructor, service.AddQuestionRequest{
		Text:   "2 + 2 = ?",
		Type:   model.QuestionTypeMCQ,
		Points: 2,
		Answers: []service.AnswerRequest{
			{Text: "3"},
			{Text: "4", IsCorrect: true},
		},
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	question := decode[model.Question](t, resp.Data)
	require.Len(t, question.Answers, 2)

	var correct uint
	for _, a := range question.Answers {
		if a.IsCorrect {
			correct = a.ID
		}
	}
	require.NotZero(t, correct)
	return quiz, question, correct
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	code, resp, header := s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, header.Get(security.RequestIDHeader))

	data := decode[map[string]interface{}](t, resp.Data)
	assert.Equal(t, "ok", data["status"])
	components := data["components"].(map[string]interface{})
	assert.Equal(t, "disabled", components["redis"])
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)

	code, _, _ := s.do(t, http.MethodGet, "/api/quizzes/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _, _ = s.do(t, http.MethodGet, "/api/quizzes/1", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	student := token(t, 7, model.Student)
	code, _, _ = s.do(t, http.MethodPost, "/api/admin/quizzes", student, service.CreateQuizRequest{CourseID: 1, Title: "x"})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp, _ := s.do(t, http.MethodGet, "/api/no-such-route", student, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Resource not found", resp.Message)

	admin := token(t, 1, model.Admin)
	code, _, _ = s.do(t, http.MethodGet, "/api/admin/courses/1/quizzes", admin, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestLessonQuizOverHTTP(t *testing.T) {
	s := newTestServer(t)
	instructor := token(t, 100, model.Instructor)
	student := token(t, 7, model.Student)

	quiz, question, correct := s.createLessonQuiz(t, instructor, 1, 1)

	code, resp, _ := s.do(t, http.MethodGet, fmt.Sprintf("/api/quizzes/%d", quiz.ID), student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, strings.Contains(string(resp.Data), "isCorrect"))

	code, resp, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/attempts/start", quiz.ID), student, nil)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	view := decode[service.AttemptView](t, resp.Data)
	assert.Equal(t, 1, view.Attempt.AttemptNumber)
	assert.Len(t, view.Quiz.Questions, 1)

	submit := map[string]interface{}{
		"attemptId": view.Attempt.ID,
		"answers": []map[string]interface{}{
			{"questionId": question.ID, "selectedAnswerId": correct},
		},
	}
	code, resp, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/submit", quiz.ID), student, submit)
	require.Equal(t, http.StatusOK, code, resp.Message)
	result := decode[service.SubmitResult](t, resp.Data)
	assert.Equal(t, 100, result.Score)
	assert.True(t, result.Passed)
	assert.Equal(t, 2, result.EarnedPoints)

	code, _, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/submit", quiz.ID), student, submit)
	assert.Equal(t, http.StatusConflict, code)

	code, resp, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/quiz-attempts/%d/review", view.Attempt.ID), student, nil)
	require.Equal(t, http.StatusOK, code)
	review := decode[service.AttemptReview](t, resp.Data)
	assert.False(t, review.Redacted)
	require.Len(t, review.Questions, 1)
	assert.Equal(t, []uint{correct}, review.Questions[0].CorrectAnswerIDs)

	other := token(t, 8, model.Student)
	code, _, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/quiz-attempts/%d/review", view.Attempt.ID), other, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/admin/quiz-attempts/%d/review", view.Attempt.ID), instructor, nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp, _ = s.do(t, http.MethodGet, "/api/quiz-attempts", student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]model.QuizAttempt](t, resp.Data), 1)

	// retakes are off by default
	code, _, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/attempts/start", quiz.ID), student, nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestSubmitValidation(t *testing.T) {
	s := newTestServer(t)
	instructor := token(t, 100, model.Instructor)
	student := token(t, 7, model.Student)
	quiz, _, _ := s.createLessonQuiz(t, instructor, 1, 1)

	code, _, _ := s.do(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/submit", quiz.ID), student, map[string]interface{}{
		"answers": []map[string]interface{}{{"selectedAnswerId": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/submit", quiz.ID), student, map[string]interface{}{
		"attemptId": 9999,
		"answers":   []map[string]interface{}{},
	})
	assert.Equal(t, http.StatusNotFound, code)

	code, _, _ = s.do(t, http.MethodGet, "/api/quizzes/abc", student, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFinalQuizOverHTTP(t *testing.T) {
	s := newTestServer(t)
	instructor := token(t, 100, model.Instructor)
	student := token(t, 7, model.Student)

	code, _, _ := s.do(t, http.MethodPost, "/api/courses/5/final-quiz/start", student, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	s.createLessonQuiz(t, instructor, 5, 1)
	s.createLessonQuiz(t, instructor, 5, 2)

	code, resp, _ := s.do(t, http.MethodPost, "/api/courses/5/final-quiz/start", student, nil)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	first := decode[service.AttemptView](t, resp.Data)
	assert.False(t, first.Resumed)
	assert.True(t, first.Quiz.IsFinal)
	assert.Len(t, first.Attempt.SelectedQuestionIDs, 2)

	code, resp, _ = s.do(t, http.MethodPost, "/api/courses/5/final-quiz/start", student, nil)
	require.Equal(t, http.StatusOK, code)
	resumed := decode[service.AttemptView](t, resp.Data)
	assert.True(t, resumed.Resumed)
	assert.Equal(t, first.Attempt.ID, resumed.Attempt.ID)

	code, resp, _ = s.do(t, http.MethodGet, "/api/admin/courses/5/final-quiz", instructor, nil)
	require.Equal(t, http.StatusOK, code)
	settings := decode[service.FinalQuizSettings](t, resp.Data)
	assert.Equal(t, 2, settings.PoolSize)

	code, _, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/admin/quizzes/%d/questions", settings.QuizID), instructor, service.AddQuestionRequest{
		Text: "extra", Type: model.QuestionTypeShortAnswer, Points: 1,
	})
	assert.Equal(t, http.StatusConflict, code)
}

func TestConfigCallbacksApplyQuizSettings(t *testing.T) {
	s := newTestServer(t)

	reloaded := *s.app.Config
	reloaded.Quiz.FinalQuestionCount = 3
	s.app.applyConfig(&reloaded)

	assert.Equal(t, 3, s.app.services.quiz.Selector.SampleSize())
}
