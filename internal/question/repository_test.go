package question

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lesson-system/internal/models"
	"lesson-system/internal/testutil"
)

func TestRepository_FiltersCombineAcrossTagKinds(t *testing.T) {
	db := testutil.NewDB(t)
	grammar := testutil.Skill(t, db, "grammar")
	travel := testutil.Topic(t, db, "travel")
	a1 := testutil.Level(t, db, "A1")

	testutil.Question(t, db, models.Question{ID: 1, Levels: []models.Level{a1}, Skills: []models.Skill{grammar}})
	testutil.Question(t, db, models.Question{ID: 2, Levels: []models.Level{a1}, Topics: []models.Topic{travel}})
	testutil.Question(t, db, models.Question{ID: 3, Levels: []models.Level{a1}, Skills: []models.Skill{grammar}, Topics: []models.Topic{travel}})

	repo := NewRepository(db)
	ctx := context.Background()

	n, err := repo.CountMatching(ctx, models.BankFilters{Levels: []string{"A1"}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	rows, err := repo.FindMatching(ctx, models.BankFilters{Skills: []string{"grammar"}, Topics: []string{"travel"}}, Window{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(3), rows[0].ID)

	max, err := repo.MaxMatchingID(ctx, models.BankFilters{Topics: []string{"travel"}})
	require.NoError(t, err)
	assert.Equal(t, uint(3), max)

	max, err = repo.MaxMatchingID(ctx, models.BankFilters{Topics: []string{"food"}})
	require.NoError(t, err)
	assert.Zero(t, max)
}

func TestRepository_FindByIDsKeepsOrder(t *testing.T) {
	db := testutil.NewDB(t)
	for _, id := range []uint{5, 6, 7} {
		testutil.ChoiceQuestion(t, db, id, "A")
	}
	repo := NewRepository(db)

	got, err := repo.FindByIDs(context.Background(), []uint{7, 5, 99, 6})
	require.NoError(t, err)
	assert.Equal(t, []uint{7, 5, 6}, ids(got))
}

func TestRepository_FindGradingData(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.ChoiceQuestion(t, db, 5, "B")
	repo := NewRepository(db)

	got, err := repo.FindGradingData(context.Background(), []uint{5})
	require.NoError(t, err)
	require.Contains(t, got, uint(5))
	assert.Equal(t, models.QuestionSingleChoice, got[5].Type)
	assert.JSONEq(t, `{"answerId":"B"}`, string(got[5].CorrectAnswer))
	assert.Equal(t, "because B", got[5].Explanation)
}

func TestRepository_SoftDeletedQuestionsStillResolveByID(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.ChoiceQuestion(t, db, 1, "A", "A1")
	testutil.ChoiceQuestion(t, db, 2, "B", "A1")
	require.NoError(t, db.Delete(&models.Question{}, 1).Error)

	repo := NewRepository(db)
	ctx := context.Background()

	n, err := repo.CountMatching(ctx, models.BankFilters{Levels: []string{"A1"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "deleted questions are not sampled")

	qs, err := repo.FindByIDs(ctx, []uint{1, 2})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, uint(1), qs[0].ID)

	keys, err := repo.FindGradingData(ctx, []uint{1, 2})
	require.NoError(t, err)
	require.Contains(t, keys, uint(1))
	assert.JSONEq(t, `{"answerId":"A"}`, string(keys[1].CorrectAnswer))
}
