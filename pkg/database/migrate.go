// backend/pkg/database/migrate.go
package database

import (
	"fmt"

	"gorm.io/gorm"

	"lesson-system/internal/models"
)

// extraIndexes are created after AutoMigrate. Both PostgreSQL and SQLite
// understand partial indexes and IF NOT EXISTS.
var extraIndexes = []string{
	// at most one in-progress attempt per (user, lesson)
	`CREATE UNIQUE INDEX IF NOT EXISTS lesson_attempts_one_in_progress_idx
		ON lesson_attempts (user_id, lesson_id) WHERE status = 'in_progress'`,
	`CREATE INDEX IF NOT EXISTS question_levels_level_question_idx ON question_levels (level_id, question_id)`,
	`CREATE INDEX IF NOT EXISTS question_skills_skill_question_idx ON question_skills (skill_id, question_id)`,
	`CREATE INDEX IF NOT EXISTS question_topics_topic_question_idx ON question_topics (topic_id, question_id)`,
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Level{},
		&models.Skill{},
		&models.Topic{},
		&models.Question{},
		&models.QuestionBank{},
		&models.Lesson{},
		&models.LessonAttempt{},
		&models.UserAnswer{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range extraIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
