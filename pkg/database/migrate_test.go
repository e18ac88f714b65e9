package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lesson-system/internal/models"
)

func TestMigrate_OneInProgressAttemptPerUserLesson(t *testing.T) {
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"), true)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	lesson := &models.Lesson{Title: "Greetings"}
	require.NoError(t, db.Create(lesson).Error)

	attempt := func(status models.AttemptStatus) *models.LessonAttempt {
		return &models.LessonAttempt{
			UserID:    1,
			LessonID:  lesson.ID,
			Status:    status,
			StartedAt: time.Now(),
		}
	}

	require.NoError(t, db.Create(attempt(models.AttemptInProgress)).Error)
	assert.Error(t, db.Create(attempt(models.AttemptInProgress)).Error)

	// completed attempts are not constrained
	require.NoError(t, db.Create(attempt(models.AttemptCompleted)).Error)
	require.NoError(t, db.Create(attempt(models.AttemptCompleted)).Error)
}
