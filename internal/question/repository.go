// backend/internal/question/repository.go
package question

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"lesson-system/internal/models"
)

// learnerColumns never include correct_answer or explanation.
var learnerColumns = []string{
	"questions.id", "questions.content", "questions.type", "questions.options", "questions.difficulty",
}

var gradingColumns = []string{
	"questions.id", "questions.type", "questions.correct_answer", "questions.explanation",
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Window bounds an id-ordered scan. Zero values leave a side open.
type Window struct {
	FromID   uint // id >= FromID
	BeforeID uint // id < BeforeID
	Limit    int
}

// matching scopes a query to published questions that carry at least one of
// the requested codes for every non-empty tag list.
func (r *Repository) matching(ctx context.Context, f models.BankFilters) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("questions.status = ?", models.QuestionPublished)
	if len(f.Levels) > 0 {
		q = q.Where("questions.id IN (?)", r.tagSubquery("question_levels", "levels", "level_id", f.Levels))
	}
	if len(f.Skills) > 0 {
		q = q.Where("questions.id IN (?)", r.tagSubquery("question_skills", "skills", "skill_id", f.Skills))
	}
	if len(f.Topics) > 0 {
		q = q.Where("questions.id IN (?)", r.tagSubquery("question_topics", "topics", "topic_id", f.Topics))
	}
	return q
}

func (r *Repository) tagSubquery(joinTable, tagTable, fk string, codes []string) *gorm.DB {
	return r.db.Table(joinTable).
		Select(joinTable+".question_id").
		Joins(fmt.Sprintf("JOIN %s ON %s.id = %s.%s", tagTable, tagTable, joinTable, fk)).
		Where(tagTable+".code IN ?", codes)
}

// MaxMatchingID returns 0 when nothing matches.
func (r *Repository) MaxMatchingID(ctx context.Context, f models.BankFilters) (uint, error) {
	var max sql.NullInt64
	if err := r.matching(ctx, f).Select("MAX(questions.id)").Row().Scan(&max); err != nil {
		return 0, fmt.Errorf("max question id: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return uint(max.Int64), nil
}

func (r *Repository) FindMatching(ctx context.Context, f models.BankFilters, w Window) ([]models.Question, error) {
	q := r.matching(ctx, f).Select(learnerColumns).Order("questions.id ASC")
	if w.FromID > 0 {
		q = q.Where("questions.id >= ?", w.FromID)
	}
	if w.BeforeID > 0 {
		q = q.Where("questions.id < ?", w.BeforeID)
	}
	if w.Limit > 0 {
		q = q.Limit(w.Limit)
	}
	var questions []models.Question
	if err := q.Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	return questions, nil
}

func (r *Repository) CountMatching(ctx context.Context, f models.BankFilters) (int64, error) {
	var n int64
	if err := r.matching(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

// FindByIDs loads learner-safe rows and returns them in the order of ids.
// Soft-deleted questions are included since frozen samples refer to them;
// ids with no row at all are skipped.
func (r *Repository) FindByIDs(ctx context.Context, ids []uint) ([]models.QuestionDTO, error) {
	if len(ids) == 0 {
		return []models.QuestionDTO{}, nil
	}
	var rows []models.Question
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Question{}).
		Select(learnerColumns).
		Where("questions.id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find questions by id: %w", err)
	}
	byID := make(map[uint]models.Question, len(rows))
	for _, q := range rows {
		byID[q.ID] = q
	}
	out := make([]models.QuestionDTO, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q.ToDTO())
		}
	}
	return out, nil
}

// FindGradingData loads type, correct answer and explanation keyed by id,
// soft-deleted questions included.
func (r *Repository) FindGradingData(ctx context.Context, ids []uint) (map[uint]models.Question, error) {
	out := make(map[uint]models.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Question
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Question{}).
		Select(gradingColumns).
		Where("questions.id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find grading data: %w", err)
	}
	for _, q := range rows {
		out[q.ID] = q
	}
	return out, nil
}
