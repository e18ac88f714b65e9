// backend/internal/testutil/testutil.go

// Package testutil opens throwaway SQLite databases and seeds fixtures for
// package tests.
package testutil

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lesson-system/internal/models"
	"lesson-system/pkg/database"
)

// NewDB returns a migrated database living under t.TempDir().
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "lesson-system.db"), true)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func JSON(t testing.TB, v interface{}) datatypes.JSON {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return datatypes.JSON(b)
}

func User(t testing.TB, db *gorm.DB, username, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Username: username, Email: email, Password: string(hash)}
	require.NoError(t, db.Create(u).Error)
	return u
}

func Level(t testing.TB, db *gorm.DB, code string) models.Level {
	t.Helper()
	var l models.Level
	require.NoError(t, db.Where(models.Level{Code: code}).Attrs(models.Level{Name: code}).FirstOrCreate(&l).Error)
	return l
}

func Skill(t testing.TB, db *gorm.DB, code string) models.Skill {
	t.Helper()
	var s models.Skill
	require.NoError(t, db.Where(models.Skill{Code: code}).Attrs(models.Skill{Name: code}).FirstOrCreate(&s).Error)
	return s
}

func Topic(t testing.TB, db *gorm.DB, code string) models.Topic {
	t.Helper()
	var tp models.Topic
	require.NoError(t, db.Where(models.Topic{Code: code}).Attrs(models.Topic{Name: code}).FirstOrCreate(&tp).Error)
	return tp
}

// Question inserts q as-is. Status defaults to published.
func Question(t testing.TB, db *gorm.DB, q models.Question) *models.Question {
	t.Helper()
	if q.Status == "" {
		q.Status = models.QuestionPublished
	}
	if q.Type == "" {
		q.Type = models.QuestionSingleChoice
	}
	if q.Content == "" {
		q.Content = "question"
	}
	require.NoError(t, db.Create(&q).Error)
	return &q
}

// ChoiceQuestion is a single_choice question whose correct option is answerID.
func ChoiceQuestion(t testing.TB, db *gorm.DB, id uint, answerID string, levels ...string) *models.Question {
	t.Helper()
	q := models.Question{
		ID:            id,
		Content:       "pick one",
		Type:          models.QuestionSingleChoice,
		Options:       JSON(t, []map[string]string{{"id": "A", "text": "a"}, {"id": "B", "text": "b"}}),
		CorrectAnswer: JSON(t, map[string]string{"answerId": answerID}),
		Explanation:   "because " + answerID,
	}
	for _, code := range levels {
		q.Levels = append(q.Levels, Level(t, db, code))
	}
	return Question(t, db, q)
}

func Bank(t testing.TB, db *gorm.DB, b models.QuestionBank) *models.QuestionBank {
	t.Helper()
	if b.Name == "" {
		b.Name = "bank"
	}
	if b.RandomizationStrategy == "" {
		b.RandomizationStrategy = models.RandomizationRandom
	}
	require.NoError(t, db.Create(&b).Error)
	return &b
}

func Lesson(t testing.TB, db *gorm.DB, l models.Lesson) *models.Lesson {
	t.Helper()
	if l.Title == "" {
		l.Title = "lesson"
	}
	if l.LessonType == "" {
		l.LessonType = models.LessonTypeLesson
	}
	require.NoError(t, db.Create(&l).Error)
	return &l
}

func IntPtr(v int) *int { return &v }

func BoolPtr(v bool) *bool { return &v }
