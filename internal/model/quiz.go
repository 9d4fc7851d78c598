package model

import "time"

// swagger:model Quiz
type Quiz struct {
	BaseModel

	CourseID         uint   `gorm:"index;not null" json:"courseId"`
	LessonID         *uint  `gorm:"index" json:"lessonId,omitempty"` // nil for course-level and final quizzes
	Title            string `gorm:"size:255;not null" json:"title"`
	PassingScore     int    `json:"passingScore"`
	TimeLimit        *int   `json:"timeLimit,omitempty"` // minutes, nil or 0 means unlimited
	ShuffleQuestions bool   `json:"shuffleQuestions"`
	AllowRetake      bool   `json:"allowRetake"`
	IsActive         bool   `json:"isActive"`
	IsFinal          bool   `gorm:"index" json:"isFinal"`

	// FinalCourseID mirrors CourseID on final quizzes only, so the unique index
	// allows a single final quiz per course while ignoring every other row.
	FinalCourseID *uint `gorm:"uniqueIndex" json:"-"`

	Questions []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// TimeLimitDuration returns 0 when the quiz is untimed.
func (q *Quiz) TimeLimitDuration() time.Duration {
	if q.TimeLimit == nil || *q.TimeLimit <= 0 {
		return 0
	}
	return time.Duration(*q.TimeLimit) * time.Minute
}
