package question

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lesson-system/internal/models"
	"lesson-system/internal/testutil"
)

func ids(qs []models.QuestionDTO) []uint {
	out := make([]uint, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

// seedPool creates A1 questions 10..14 plus a B2 question and a draft.
func seedPool(t *testing.T) *gorm.DB {
	db := testutil.NewDB(t)
	for id := uint(10); id <= 14; id++ {
		testutil.ChoiceQuestion(t, db, id, "A", "A1")
	}
	testutil.ChoiceQuestion(t, db, 20, "A", "B2")
	testutil.Question(t, db, models.Question{
		ID:     21,
		Status: models.QuestionDraft,
		Levels: []models.Level{testutil.Level(t, db, "A1")},
	})
	return db
}

func TestSelectQuestions_AscendingWithoutShuffle(t *testing.T) {
	db := seedPool(t)
	s := NewSampler(NewRepository(db))

	got, err := s.SelectQuestions(context.Background(), SelectOptions{
		Count:   3,
		Filters: models.BankFilters{Levels: []string{"A1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{10, 11, 12}, ids(got))
}

func TestSelectQuestions_ZeroCount(t *testing.T) {
	db := seedPool(t)
	s := NewSampler(NewRepository(db))

	got, err := s.SelectQuestions(context.Background(), SelectOptions{Count: 0, Shuffle: true})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelectQuestions_NoMatches(t *testing.T) {
	db := seedPool(t)
	s := NewSampler(NewRepository(db))

	got, err := s.SelectQuestions(context.Background(), SelectOptions{
		Count:   3,
		Shuffle: true,
		Filters: models.BankFilters{Levels: []string{"C2"}},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelectQuestions_DraftsAreExcluded(t *testing.T) {
	db := seedPool(t)
	s := NewSampler(NewRepository(db))

	got, err := s.SelectQuestions(context.Background(), SelectOptions{
		Count:   50,
		Filters: models.BankFilters{Levels: []string{"A1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{10, 11, 12, 13, 14}, ids(got))
}

func TestSelectQuestions_ShuffleWrapsAround(t *testing.T) {
	db := seedPool(t)
	// always the highest value: start at the max id, identity shuffle
	s := NewSampler(NewRepository(db)).WithRand(func(n int) int { return n - 1 })

	got, err := s.SelectQuestions(context.Background(), SelectOptions{
		Count:      3,
		Shuffle:    true,
		Filters:    models.BankFilters{Levels: []string{"A1"}},
		Oversample: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{14, 10, 11}, ids(got))
}

func TestSelectQuestions_ShuffleWindowIsBounded(t *testing.T) {
	db := seedPool(t)
	// start at id 1, identity shuffle
	s := NewSampler(NewRepository(db)).WithRand(func(n int) int {
		if n == 14 {
			return 0
		}
		return n - 1
	})

	got, err := s.SelectQuestions(context.Background(), SelectOptions{
		Count:      2,
		Shuffle:    true,
		Filters:    models.BankFilters{Levels: []string{"A1"}},
		Oversample: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{10, 11}, ids(got))
}

func TestSelectQuestions_ShuffleReturnsDistinctMatches(t *testing.T) {
	db := seedPool(t)
	s := NewSampler(NewRepository(db))

	for i := 0; i < 20; i++ {
		got, err := s.SelectQuestions(context.Background(), SelectOptions{
			Count:   4,
			Shuffle: true,
			Filters: models.BankFilters{Levels: []string{"A1"}},
		})
		require.NoError(t, err)
		require.Len(t, got, 4)
		seen := map[uint]bool{}
		for _, id := range ids(got) {
			assert.GreaterOrEqual(t, id, uint(10))
			assert.LessOrEqual(t, id, uint(14))
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
	}
}

func TestSelectQuestions_LearnerSafeFields(t *testing.T) {
	db := seedPool(t)
	repo := NewRepository(db)

	rows, err := repo.FindMatching(context.Background(), models.BankFilters{}, Window{Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].CorrectAnswer)
	assert.Empty(t, rows[0].Explanation)
	assert.NotEmpty(t, rows[0].Options)
}

func TestOversample(t *testing.T) {
	assert.Equal(t, 12, Oversample(3, MaxOversample))
	assert.Equal(t, 800, Oversample(500, MaxOversample))
	assert.Equal(t, 200, Oversample(60, 200))
	assert.Equal(t, 0, Oversample(0, MaxOversample))
}
