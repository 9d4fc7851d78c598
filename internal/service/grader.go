package service

import (
	"math"
	"olp_backend/internal/model"

	"gorm.io/datatypes"
)

// QuestionResponse is a learner's answer to one question. Which field is read depends on the
// question type.
type QuestionResponse struct {
	QuestionID        uint    `json:"questionId" binding:"required"`
	SelectedAnswerID  *uint   `json:"selectedAnswerId,omitempty"`
	SelectedAnswerIDs []uint  `json:"selectedAnswerIds,omitempty"`
	TextAnswer        *string `json:"textAnswer,omitempty"`
}

type GradeResult struct {
	IsCorrect     bool
	PointsAwarded int
}

// Grade scores a single response. A nil response counts as unanswered.
func Grade(q *model.Question, resp *QuestionResponse) GradeResult {
	var correct bool
	if resp != nil {
		switch q.Type {
		case model.QuestionTypeMCQ, model.QuestionTypeTrueFalse:
			correct = gradeSingleChoice(q, resp.SelectedAnswerID)
		case model.QuestionTypeMSQ:
			correct = gradeMultiChoice(q, resp.SelectedAnswerIDs)
		case model.QuestionTypeShortAnswer:
			// no answer key; the text is kept for human review
			correct = false
		}
	}
	if !correct {
		return GradeResult{}
	}
	return GradeResult{IsCorrect: true, PointsAwarded: questionPoints(q)}
}

func gradeSingleChoice(q *model.Question, selected *uint) bool {
	if selected == nil {
		return false
	}
	for _, id := range q.CorrectAnswerIDs() {
		if id == *selected {
			return true
		}
	}
	return false
}

func gradeMultiChoice(q *model.Question, selected []uint) bool {
	want := q.CorrectAnswerIDs()
	if len(want) == 0 {
		return false
	}
	got := dedupeIDs(selected)
	if len(got) != len(want) {
		return false
	}
	wantSet := make(map[uint]struct{}, len(want))
	for _, id := range want {
		wantSet[id] = struct{}{}
	}
	for _, id := range got {
		if _, ok := wantSet[id]; !ok {
			return false
		}
	}
	return true
}

func questionPoints(q *model.Question) int {
	if q.Points < 0 {
		return 0
	}
	return q.Points
}

// ScorePercent rounds half away from zero and returns 0 when there is nothing to earn.
func ScorePercent(earned, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(earned) / float64(total)))
}

type gradedSubmission struct {
	Answers       []model.QuizAttemptAnswer
	EarnedPoints  int
	TotalPoints   int
	CorrectCount  int
	QuestionCount int
	Score         int
}

// gradeSubmission writes one answer row per question, answered or not. Only the first response
// for a question is considered, and responses to questions outside the set are ignored.
func gradeSubmission(questions []model.Question, responses []QuestionResponse) gradedSubmission {
	byQuestion := make(map[uint]*QuestionResponse, len(responses))
	for i := range responses {
		if _, seen := byQuestion[responses[i].QuestionID]; !seen {
			byQuestion[responses[i].QuestionID] = &responses[i]
		}
	}

	out := gradedSubmission{
		Answers:       make([]model.QuizAttemptAnswer, 0, len(questions)),
		QuestionCount: len(questions),
	}
	for i := range questions {
		q := &questions[i]
		resp := byQuestion[q.ID]
		result := Grade(q, resp)

		row := model.QuizAttemptAnswer{
			QuestionID:        q.ID,
			SelectedAnswerIDs: datatypes.JSONSlice[uint]{},
			IsCorrect:         result.IsCorrect,
			PointsAwarded:     result.PointsAwarded,
		}
		if resp != nil {
			row.SelectedAnswerID = resp.SelectedAnswerID
			row.SelectedAnswerIDs = datatypes.JSONSlice[uint](dedupeIDs(resp.SelectedAnswerIDs))
			row.TextAnswer = resp.TextAnswer
		}
		out.Answers = append(out.Answers, row)

		out.TotalPoints += questionPoints(q)
		out.EarnedPoints += result.PointsAwarded
		if result.IsCorrect {
			out.CorrectCount++
		}
	}
	out.Score = ScorePercent(out.EarnedPoints, out.TotalPoints)
	return out
}

func dedupeIDs(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
