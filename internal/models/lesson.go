// backend/internal/models/lesson.go
package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonType string

const (
	LessonTypeLesson LessonType = "lesson"
	LessonTypeQuiz   LessonType = "quiz"
	LessonTypeTest   LessonType = "test"
)

func (t LessonType) Valid() bool {
	switch t {
	case LessonTypeLesson, LessonTypeQuiz, LessonTypeTest:
		return true
	}
	return false
}

type Lesson struct {
	ID                      uint           `json:"id" gorm:"primaryKey"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
	DeletedAt               gorm.DeletedAt `json:"-" gorm:"index"`
	Title                   string         `json:"title" gorm:"not null"`
	Description             *string        `json:"description"`
	QuestionCount           int            `json:"question_count"`
	TimeLimit               *int           `json:"time_limit"`
	PassScore               *int           `json:"pass_score"`
	RetryPolicy             datatypes.JSON `json:"retry_policy"`
	ShuffleQuestions        *bool          `json:"shuffle_questions"`
	ShowExplanationOnSubmit bool           `json:"show_explanation_on_submit" gorm:"not null"`
	LessonType              LessonType     `json:"lesson_type" gorm:"size:16;not null;default:lesson"`
	QuestionBankID          *uint          `json:"question_bank_id"`
	QuestionBank            *QuestionBank  `json:"question_bank,omitempty" gorm:"foreignKey:QuestionBankID"`
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// ConfigSnapshot freezes the grading rules of a lesson when an attempt starts.
type ConfigSnapshot struct {
	LessonType              LessonType            `json:"lessonType"`
	TimeLimit               *int                  `json:"timeLimit"`
	PassScore               *int                  `json:"passScore"`
	RetryPolicy             datatypes.JSON        `json:"retryPolicy"`
	ShowExplanationOnSubmit bool                  `json:"showExplanationOnSubmit"`
	RandomizationStrategy   RandomizationStrategy `json:"randomizationStrategy"`
	Filters                 BankFilters           `json:"filters"`
}

type LessonAttempt struct {
	ID             uint                               `json:"id" gorm:"primaryKey"`
	CreatedAt      time.Time                          `json:"created_at"`
	UpdatedAt      time.Time                          `json:"updated_at"`
	UserID         uint                               `json:"user_id" gorm:"not null;index:lesson_attempts_user_idx;index:lesson_attempts_user_status_idx,priority:1"`
	LessonID       uint                               `json:"lesson_id" gorm:"not null;index:lesson_attempts_lesson_idx"`
	Lesson         *Lesson                            `json:"lesson,omitempty" gorm:"foreignKey:LessonID"`
	QuestionBankID *uint                              `json:"question_bank_id"`
	QuestionBank   *QuestionBank                      `json:"question_bank,omitempty" gorm:"foreignKey:QuestionBankID"`
	QuestionIDs    datatypes.JSONSlice[uint]          `json:"question_ids" gorm:"column:question_ids"`
	Status         AttemptStatus                      `json:"status" gorm:"size:16;not null;index:lesson_attempts_status_idx;index:lesson_attempts_user_status_idx,priority:2"`
	StartedAt      time.Time                          `json:"started_at" gorm:"not null"`
	SubmittedAt    *time.Time                         `json:"submitted_at"`
	Score          *int                               `json:"score"`
	CorrectCount   *int                               `json:"correct_count"`
	TotalQuestions int                                `json:"total_questions"`
	TimeSpent      *int                               `json:"time_spent"`
	ConfigSnapshot datatypes.JSONType[ConfigSnapshot] `json:"config_snapshot"`
	Answers        []UserAnswer                       `json:"answers,omitempty" gorm:"foreignKey:LessonAttemptID"`
}

type UserAnswer struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	CreatedAt       time.Time      `json:"created_at"`
	LessonAttemptID uint           `json:"lesson_attempt_id" gorm:"not null;index:user_answers_lesson_attempt_idx"`
	QuestionID      uint           `json:"question_id" gorm:"not null;index:user_answers_question_idx;index:user_answers_question_correct_idx,priority:1"`
	Question        *Question      `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	Response        datatypes.JSON `json:"response"`
	IsCorrect       *bool          `json:"is_correct" gorm:"index:user_answers_is_correct_idx;index:user_answers_question_correct_idx,priority:2"`
	TimeSpent       int            `json:"time_spent"`
	EarnedScore     int            `json:"earned_score"`
}
