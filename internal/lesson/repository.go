// backend/internal/lesson/repository.go
package lesson

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"lesson-system/internal/models"
)

// errAttemptInProgress means the one-in-progress-per-(user, lesson) index
// rejected an insert.
var errAttemptInProgress = errors.New("attempt already in progress")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn against a repository bound to one transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// GetLesson loads a lesson with its question bank. Nil when absent.
func (r *Repository) GetLesson(ctx context.Context, id uint) (*models.Lesson, error) {
	var lesson models.Lesson
	err := r.db.WithContext(ctx).Preload("QuestionBank").First(&lesson, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	return &lesson, nil
}

func (r *Repository) GetBank(ctx context.Context, id uint) (*models.QuestionBank, error) {
	var bank models.QuestionBank
	err := r.db.WithContext(ctx).First(&bank, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question bank: %w", err)
	}
	return &bank, nil
}

// FindInProgress returns the most recent in-progress attempt. Nil when none.
func (r *Repository) FindInProgress(ctx context.Context, userID, lessonID uint) (*models.LessonAttempt, error) {
	var attempt models.LessonAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ? AND status = ?", userID, lessonID, models.AttemptInProgress).
		Order("started_at DESC, id DESC").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find in-progress attempt: %w", err)
	}
	return &attempt, nil
}

func (r *Repository) CreateAttempt(ctx context.Context, attempt *models.LessonAttempt) error {
	err := r.db.WithContext(ctx).Omit("Lesson", "QuestionBank", "Answers").Create(attempt).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errAttemptInProgress
	}
	if err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

func (r *Repository) GetAttempt(ctx context.Context, id uint) (*models.LessonAttempt, error) {
	var attempt models.LessonAttempt
	err := r.db.WithContext(ctx).First(&attempt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return &attempt, nil
}

// GetAttemptDetail loads an attempt with lesson, bank and graded answers.
// Lessons, banks and questions are loaded even if soft-deleted since the
// attempt still refers to them.
func (r *Repository) GetAttemptDetail(ctx context.Context, id uint) (*models.LessonAttempt, error) {
	var attempt models.LessonAttempt
	err := r.db.WithContext(ctx).
		Preload("Lesson", unscoped).
		Preload("QuestionBank", unscoped).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("user_answers.id ASC") }).
		Preload("Answers.Question", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped().Select("id", "content", "type", "options", "explanation")
		}).
		First(&attempt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt detail: %w", err)
	}
	return &attempt, nil
}

func unscoped(db *gorm.DB) *gorm.DB { return db.Unscoped() }

func (r *Repository) CreateAnswers(ctx context.Context, answers []models.UserAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Omit("Question").CreateInBatches(answers, 100).Error; err != nil {
		return fmt.Errorf("create answers: %w", err)
	}
	return nil
}

type Completion struct {
	SubmittedAt    time.Time
	Score          int
	CorrectCount   int
	TotalQuestions int
	TimeSpent      int
}

// CompleteAttempt flips an in-progress attempt to completed. It reports
// false when the attempt was no longer in progress.
func (r *Repository) CompleteAttempt(ctx context.Context, id uint, c Completion) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.LessonAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":          models.AttemptCompleted,
			"submitted_at":    c.SubmittedAt,
			"score":           c.Score,
			"correct_count":   c.CorrectCount,
			"total_questions": c.TotalQuestions,
			"time_spent":      c.TimeSpent,
		})
	if res.Error != nil {
		return false, fmt.Errorf("complete attempt: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

type HistoryFilter struct {
	UserID     uint
	Query      string
	MinScore   *int
	LessonType models.LessonType
	Offset     int
	Limit      int
}

// ListHistory returns one page of completed attempts and the total count.
func (r *Repository) ListHistory(ctx context.Context, f HistoryFilter) ([]models.LessonAttempt, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.LessonAttempt{}).
			Joins("JOIN lessons ON lessons.id = lesson_attempts.lesson_id").
			Where("lesson_attempts.user_id = ? AND lesson_attempts.status = ?", f.UserID, models.AttemptCompleted)
		if f.MinScore != nil {
			q = q.Where("lesson_attempts.score > ?", *f.MinScore)
		}
		if f.Query != "" {
			q = q.Where(`LOWER(lessons.title) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(f.Query))+"%")
		}
		if f.LessonType != "" {
			q = q.Where("lessons.lesson_type = ?", f.LessonType)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	var rows []models.LessonAttempt
	err := base().
		Select("lesson_attempts.*").
		Preload("Lesson", unscoped).
		Preload("QuestionBank", unscoped).
		Order("lesson_attempts.submitted_at DESC").
		Order("lesson_attempts.id DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	return rows, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
