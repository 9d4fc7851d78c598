package service

import (
	"olp_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcqQuestion(points int) model.Question {
	q := model.Question{Type: model.QuestionTypeMCQ, Points: points}
	q.ID = 7
	a := model.Answer{Text: "A", IsCorrect: true}
	a.ID = 1
	b := model.Answer{Text: "B"}
	b.ID = 2
	q.Answers = []model.Answer{a, b}
	return q
}

func msqQuestion() model.Question {
	q := model.Question{Type: model.QuestionTypeMSQ, Points: 2}
	q.ID = 8
	for i, correct := range []bool{true, false, true} {
		a := model.Answer{IsCorrect: correct}
		a.ID = uint(i + 1)
		q.Answers = append(q.Answers, a)
	}
	return q
}

func TestGrade_SingleChoice(t *testing.T) {
	q := mcqQuestion(3)

	assert.Equal(t, GradeResult{IsCorrect: true, PointsAwarded: 3}, Grade(&q, &QuestionResponse{QuestionID: 7, SelectedAnswerID: uintPtr(1)}))
	assert.Equal(t, GradeResult{}, Grade(&q, &QuestionResponse{QuestionID: 7, SelectedAnswerID: uintPtr(2)}))
	assert.Equal(t, GradeResult{}, Grade(&q, &QuestionResponse{QuestionID: 7}))
	assert.Equal(t, GradeResult{}, Grade(&q, nil))

	tf := mcqQuestion(1)
	tf.Type = model.QuestionTypeTrueFalse
	assert.True(t, Grade(&tf, &QuestionResponse{SelectedAnswerID: uintPtr(1)}).IsCorrect)
}

func TestGrade_MultiSelectNeedsExactSet(t *testing.T) {
	q := msqQuestion()

	cases := []struct {
		name     string
		selected []uint
		want     bool
	}{
		{"same set reordered", []uint{3, 1}, true},
		{"duplicates ignored", []uint{1, 3, 3}, true},
		{"subset", []uint{1}, false},
		{"superset", []uint{1, 2, 3}, false},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade(&q, &QuestionResponse{SelectedAnswerIDs: tc.selected})
			assert.Equal(t, tc.want, got.IsCorrect)
			if tc.want {
				assert.Equal(t, 2, got.PointsAwarded)
			} else {
				assert.Zero(t, got.PointsAwarded)
			}
		})
	}
}

func TestGrade_MultiSelectWithoutCorrectAnswersNeverMatches(t *testing.T) {
	q := model.Question{Type: model.QuestionTypeMSQ, Points: 1}
	assert.False(t, Grade(&q, &QuestionResponse{SelectedAnswerIDs: []uint{}}).IsCorrect)
}

func TestGrade_ShortAnswerIsNeverCorrect(t *testing.T) {
	q := model.Question{Type: model.QuestionTypeShortAnswer, Points: 5}
	text := "the answer"
	assert.Equal(t, GradeResult{}, Grade(&q, &QuestionResponse{TextAnswer: &text}))
}

func TestGrade_UnknownTypeIsIncorrect(t *testing.T) {
	q := mcqQuestion(1)
	q.Type = "Essay"
	assert.False(t, Grade(&q, &QuestionResponse{SelectedAnswerID: uintPtr(1)}).IsCorrect)
}

func TestGrade_NegativePointsFloorAtZero(t *testing.T) {
	q := mcqQuestion(-4)
	got := Grade(&q, &QuestionResponse{SelectedAnswerID: uintPtr(1)})
	assert.True(t, got.IsCorrect)
	assert.Zero(t, got.PointsAwarded)
}

func TestScorePercent(t *testing.T) {
	assert.Equal(t, 25, ScorePercent(1, 4))
	assert.Equal(t, 0, ScorePercent(0, 0))
	assert.Equal(t, 0, ScorePercent(3, 0))
	assert.Equal(t, 33, ScorePercent(1, 3))
	assert.Equal(t, 67, ScorePercent(2, 3))
	assert.Equal(t, 13, ScorePercent(1, 8))
	assert.Equal(t, 100, ScorePercent(4, 4))
}

func TestGradeSubmission_ScoresAndRecordsEveryQuestion(t *testing.T) {
	one := mcqQuestion(1)
	one.ID = 10
	three := mcqQuestion(3)
	three.ID = 11

	graded := gradeSubmission([]model.Question{one, three}, []QuestionResponse{
		{QuestionID: 10, SelectedAnswerID: uintPtr(1)},
		{QuestionID: 11, SelectedAnswerID: uintPtr(2)},
		{QuestionID: 11, SelectedAnswerID: uintPtr(1)},
		{QuestionID: 99, SelectedAnswerID: uintPtr(1)},
	})

	require.Len(t, graded.Answers, 2)
	assert.Equal(t, 25, graded.Score)
	assert.Equal(t, 1, graded.EarnedPoints)
	assert.Equal(t, 4, graded.TotalPoints)
	assert.Equal(t, 1, graded.CorrectCount)
	assert.True(t, graded.Answers[0].IsCorrect)
	assert.Equal(t, 1, graded.Answers[0].PointsAwarded)
	// the first response for question 11 wins
	assert.False(t, graded.Answers[1].IsCorrect)
	assert.Equal(t, uint(2), *graded.Answers[1].SelectedAnswerID)
}

func TestGradeSubmission_UnansweredQuestionsGetRows(t *testing.T) {
	q := mcqQuestion(2)
	graded := gradeSubmission([]model.Question{q}, nil)

	require.Len(t, graded.Answers, 1)
	assert.Equal(t, q.ID, graded.Answers[0].QuestionID)
	assert.False(t, graded.Answers[0].IsCorrect)
	assert.Nil(t, graded.Answers[0].SelectedAnswerID)
	assert.Empty(t, graded.Answers[0].SelectedAnswerIDs)
	assert.Zero(t, graded.Score)
}

func TestGradeSubmission_ZeroTotalPoints(t *testing.T) {
	q := mcqQuestion(0)
	graded := gradeSubmission([]model.Question{q}, []QuestionResponse{{QuestionID: q.ID, SelectedAnswerID: uintPtr(1)}})
	assert.Zero(t, graded.Score)
	assert.True(t, graded.Answers[0].IsCorrect)
}
