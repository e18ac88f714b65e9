// backend/internal/question/sampler.go
package question

import (
	"context"
	"math/rand/v2"

	"lesson-system/internal/models"
)

const MaxOversample = 800

type SelectOptions struct {
	Count      int
	Shuffle    bool
	Filters    models.BankFilters
	Oversample int // 0 means Oversample(Count, MaxOversample)
}

// Oversample is min(max(count*4, count), limit).
func Oversample(count, limit int) int {
	n := count * 4
	if n < count {
		n = count
	}
	if n > limit {
		n = limit
	}
	return n
}

type Sampler struct {
	repo *Repository
	intN func(n int) int
}

func NewSampler(repo *Repository) *Sampler {
	return &Sampler{repo: repo, intN: rand.IntN}
}

// WithRand swaps the random source; intN must return a value in [0, n).
func (s *Sampler) WithRand(intN func(n int) int) *Sampler {
	return &Sampler{repo: s.repo, intN: intN}
}

// SelectQuestions returns learner-safe questions matching opts.Filters.
//
// Without shuffle it is the first Count matches by ascending id. With
// shuffle it picks a random start id, reads up to Oversample rows from
// there (wrapping to the lowest ids when short), shuffles that window and
// keeps Count of them. The window never exceeds Oversample rows.
func (s *Sampler) SelectQuestions(ctx context.Context, opts SelectOptions) ([]models.QuestionDTO, error) {
	count := opts.Count
	if count <= 0 {
		return []models.QuestionDTO{}, nil
	}

	if !opts.Shuffle {
		rows, err := s.repo.FindMatching(ctx, opts.Filters, Window{Limit: count})
		if err != nil {
			return nil, err
		}
		return models.ToDTOs(rows), nil
	}

	oversample := opts.Oversample
	if oversample <= 0 {
		oversample = Oversample(count, MaxOversample)
	}
	if oversample < count {
		oversample = count
	}

	maxID, err := s.repo.MaxMatchingID(ctx, opts.Filters)
	if err != nil {
		return nil, err
	}
	if maxID == 0 {
		return []models.QuestionDTO{}, nil
	}

	start := uint(1 + s.intN(int(maxID)))
	rows, err := s.repo.FindMatching(ctx, opts.Filters, Window{FromID: start, Limit: oversample})
	if err != nil {
		return nil, err
	}
	if len(rows) < oversample && start > 1 {
		more, err := s.repo.FindMatching(ctx, opts.Filters, Window{BeforeID: start, Limit: oversample - len(rows)})
		if err != nil {
			return nil, err
		}
		rows = append(rows, more...)
	}

	for i := len(rows) - 1; i > 0; i-- {
		j := s.intN(i + 1)
		rows[i], rows[j] = rows[j], rows[i]
	}
	if len(rows) > count {
		rows = rows[:count]
	}
	return models.ToDTOs(rows), nil
}
