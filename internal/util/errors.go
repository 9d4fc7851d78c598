package util

import "errors"

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindForbidden
	KindPolicyViolation
	KindEmptyPool
	KindValidation
)

// AppError is a business-rule failure reported to the caller as-is.
type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewValidationError(msg string) error {
	return &AppError{Kind: KindValidation, Message: msg}
}

// KindOf returns KindInternal for errors that are not AppErrors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

var (
	ErrQuizNotFound     = &AppError{Kind: KindNotFound, Message: "quiz not found"}
	ErrQuestionNotFound = &AppError{Kind: KindNotFound, Message: "question not found"}
	ErrAnswerNotFound   = &AppError{Kind: KindNotFound, Message: "answer not found"}
	ErrAttemptNotFound  = &AppError{Kind: KindNotFound, Message: "attempt not found"}

	ErrPermissionDenied = &AppError{Kind: KindForbidden, Message: "permission denied"}
	ErrAttemptForbidden = &AppError{Kind: KindForbidden, Message: "attempt does not belong to the current user"}

	ErrRetakeNotAllowed     = &AppError{Kind: KindPolicyViolation, Message: "retake not allowed"}
	ErrQuizInactive         = &AppError{Kind: KindPolicyViolation, Message: "quiz is not active"}
	ErrTimeLimitExceeded    = &AppError{Kind: KindPolicyViolation, Message: "time limit exceeded"}
	ErrAttemptSubmitted     = &AppError{Kind: KindPolicyViolation, Message: "attempt already submitted"}
	ErrAttemptQuizMismatch  = &AppError{Kind: KindPolicyViolation, Message: "attempt does not belong to this quiz"}
	ErrFinalQuizNotEditable = &AppError{Kind: KindPolicyViolation, Message: "questions cannot be added to a final quiz"}

	ErrNoQuestionsAvailable = &AppError{Kind: KindEmptyPool, Message: "no questions available"}
)
