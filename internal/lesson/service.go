// backend/internal/lesson/service.go
package lesson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"lesson-system/internal/apierr"
	"lesson-system/internal/grading"
	"lesson-system/internal/models"
	"lesson-system/internal/question"
	"lesson-system/pkg/cache"
	"lesson-system/pkg/logger"
)

const (
	defaultQuestionCount = 10
	maxQuestionCount     = 200

	defaultPreviewSample = 5
	maxPreviewSample     = 20
	previewOversampleCap = 200

	defaultHistoryPageSize = 20
	maxHistoryPageSize     = 100
)

// Events pushed to the attempt owner's websocket connections.
const (
	EventAttemptStarted   = "attempt_started"
	EventAttemptResumed   = "attempt_resumed"
	EventAttemptCompleted = "attempt_completed"
)

var (
	ErrLessonNotFound       = apierr.NotFound("Lesson not found")
	ErrBankNotFound         = apierr.NotFound("Question bank not found")
	ErrMissingBank          = apierr.Validation("Lesson is missing a question bank")
	ErrBankInactive         = apierr.Validation("Question bank is inactive")
	ErrAttemptNotFound      = apierr.NotFound("Attempt not found")
	ErrNotOwner             = apierr.Forbidden("Forbidden")
	ErrLessonMismatch       = apierr.Validation("Attempt does not belong to this lesson")
	ErrAttemptNotInProgress = apierr.Validation("Attempt is not in progress")
	ErrAlreadyCompleted     = apierr.New(http.StatusConflict, "already_completed", errors.New("Attempt already completed"))
	ErrInvalidLessonType    = apierr.Validation("Invalid lessonType")
)

// Selector draws a question sample.
type Selector interface {
	SelectQuestions(ctx context.Context, opts question.SelectOptions) ([]models.QuestionDTO, error)
}

// QuestionStore reads question data the selector does not cover.
type QuestionStore interface {
	FindByIDs(ctx context.Context, ids []uint) ([]models.QuestionDTO, error)
	FindGradingData(ctx context.Context, ids []uint) (map[uint]models.Question, error)
	CountMatching(ctx context.Context, f models.BankFilters) (int64, error)
}

// Notifier pushes best-effort events to a user.
type Notifier interface {
	NotifyUser(userID uint, messageType string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) NotifyUser(uint, string, interface{}) {}

type Service struct {
	repo      *Repository
	selector  Selector
	questions QuestionStore
	counts    cache.CountCache
	countTTL  time.Duration
	notifier  Notifier
	now       func() time.Time
	log       *logger.Logger
}

func NewService(
	repo *Repository,
	selector Selector,
	questions QuestionStore,
	counts cache.CountCache,
	countTTL time.Duration,
	notifier Notifier,
	log *logger.Logger,
) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if counts == nil {
		counts = cache.NewMemoryCache()
	}
	return &Service{
		repo:      repo,
		selector:  selector,
		questions: questions,
		counts:    counts,
		countTTL:  countTTL,
		notifier:  notifier,
		now:       time.Now,
		log:       log.With("service", "lesson"),
	}
}

type LessonRef struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func refOf(l *models.Lesson) LessonRef {
	return LessonRef{ID: l.ID, Title: l.Title, Description: l.Description}
}

type PreviewResult struct {
	Lesson       LessonRef            `json:"lesson"`
	QuestionBank models.BankSummary   `json:"questionBank"`
	Count        int                  `json:"count"`
	Questions    []models.QuestionDTO `json:"questions"`
}

type samplePlan struct {
	count   int
	shuffle bool
}

func planFor(l *models.Lesson, bank *models.QuestionBank) samplePlan {
	count := defaultQuestionCount
	switch {
	case l.QuestionCount > 0:
		count = l.QuestionCount
	case bank.DefaultQuestionCount > 0:
		count = bank.DefaultQuestionCount
	}
	if count > maxQuestionCount {
		count = maxQuestionCount
	}
	shuffle := bank.Shuffle
	if l.ShuffleQuestions != nil {
		shuffle = *l.ShuffleQuestions
	}
	return samplePlan{count: count, shuffle: shuffle}
}

func (s *Service) sample(ctx context.Context, bank *models.QuestionBank, plan samplePlan) ([]models.QuestionDTO, error) {
	return s.selector.SelectQuestions(ctx, question.SelectOptions{
		Count:      plan.count,
		Shuffle:    plan.shuffle,
		Filters:    bank.Filters.Data(),
		Oversample: question.Oversample(plan.count, question.MaxOversample),
	})
}

func (s *Service) loadLesson(ctx context.Context, lessonID uint) (*models.Lesson, error) {
	lesson, err := s.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, ErrLessonNotFound
	}
	return lesson, nil
}

func usableBank(lesson *models.Lesson) (*models.QuestionBank, error) {
	if lesson.QuestionBank == nil {
		return nil, ErrMissingBank
	}
	if !lesson.QuestionBank.Active {
		return nil, ErrBankInactive
	}
	return lesson.QuestionBank, nil
}

// Preview samples questions for a lesson without creating an attempt.
func (s *Service) Preview(ctx context.Context, lessonID uint) (*PreviewResult, error) {
	lesson, err := s.loadLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	bank, err := usableBank(lesson)
	if err != nil {
		return nil, err
	}
	questions, err := s.sample(ctx, bank, planFor(lesson, bank))
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		Lesson:       refOf(lesson),
		QuestionBank: bank.Summary(),
		Count:        len(questions),
		Questions:    questions,
	}, nil
}

type StartResult struct {
	AttemptID      uint                 `json:"attemptId"`
	Status         models.AttemptStatus `json:"status"`
	Resumed        bool                 `json:"resumed"`
	StartedAt      time.Time            `json:"startedAt"`
	TimeLimit      *int                 `json:"timeLimit"`
	Lesson         LessonRef            `json:"lesson"`
	QuestionBank   *models.BankSummary  `json:"questionBank"`
	TotalQuestions int                  `json:"totalQuestions"`
	Questions      []models.QuestionDTO `json:"questions"`
}

// StartAttempt resumes the caller's in-progress attempt for the lesson or
// creates a new one with a fresh sample and a frozen config snapshot.
func (s *Service) StartAttempt(ctx context.Context, lessonID, userID uint) (*StartResult, error) {
	lesson, err := s.loadLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindInProgress(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.resume(ctx, lesson, existing)
	}

	bank, err := usableBank(lesson)
	if err != nil {
		return nil, err
	}
	questions, err := s.sample(ctx, bank, planFor(lesson, bank))
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	attempt := &models.LessonAttempt{
		UserID:         userID,
		LessonID:       lesson.ID,
		QuestionBankID: &bank.ID,
		QuestionIDs:    datatypes.JSONSlice[uint](ids),
		Status:         models.AttemptInProgress,
		StartedAt:      s.now(),
		TotalQuestions: len(ids),
		ConfigSnapshot: datatypes.NewJSONType(snapshotOf(lesson, bank)),
	}
	if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
		if !errors.Is(err, errAttemptInProgress) {
			return nil, err
		}
		// a concurrent start won the race; hand back its attempt
		existing, findErr := s.repo.FindInProgress(ctx, userID, lessonID)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, fmt.Errorf("start attempt: %w", err)
		}
		return s.resume(ctx, lesson, existing)
	}

	s.log.Info("attempt started", "attempt_id", attempt.ID, "lesson_id", lesson.ID, "user_id", userID, "questions", len(ids))
	s.notifier.NotifyUser(userID, EventAttemptStarted, map[string]interface{}{
		"attemptId": attempt.ID,
		"lessonId":  lesson.ID,
	})

	summary := bank.Summary()
	return &StartResult{
		AttemptID:      attempt.ID,
		Status:         attempt.Status,
		StartedAt:      attempt.StartedAt,
		TimeLimit:      lesson.TimeLimit,
		Lesson:         refOf(lesson),
		QuestionBank:   &summary,
		TotalQuestions: len(questions),
		Questions:      questions,
	}, nil
}

func (s *Service) resume(ctx context.Context, lesson *models.Lesson, attempt *models.LessonAttempt) (*StartResult, error) {
	questions, err := s.questions.FindByIDs(ctx, []uint(attempt.QuestionIDs))
	if err != nil {
		return nil, err
	}
	snapshot := attempt.ConfigSnapshot.Data()

	var bank *models.BankSummary
	if lesson.QuestionBank != nil && attempt.QuestionBankID != nil && lesson.QuestionBank.ID == *attempt.QuestionBankID {
		summary := lesson.QuestionBank.Summary()
		bank = &summary
	}

	s.notifier.NotifyUser(attempt.UserID, EventAttemptResumed, map[string]interface{}{
		"attemptId": attempt.ID,
		"lessonId":  attempt.LessonID,
	})
	return &StartResult{
		AttemptID:      attempt.ID,
		Status:         attempt.Status,
		Resumed:        true,
		StartedAt:      attempt.StartedAt,
		TimeLimit:      snapshot.TimeLimit,
		Lesson:         refOf(lesson),
		QuestionBank:   bank,
		TotalQuestions: attempt.TotalQuestions,
		Questions:      questions,
	}, nil
}

func snapshotOf(l *models.Lesson, bank *models.QuestionBank) models.ConfigSnapshot {
	return models.ConfigSnapshot{
		LessonType:              l.LessonType,
		TimeLimit:               l.TimeLimit,
		PassScore:               l.PassScore,
		RetryPolicy:             l.RetryPolicy,
		ShowExplanationOnSubmit: l.ShowExplanationOnSubmit,
		RandomizationStrategy:   bank.RandomizationStrategy,
		Filters:                 bank.Filters.Data(),
	}
}

type AnswerInput struct {
	QuestionID uint            `json:"questionId"`
	Response   json.RawMessage `json:"response"`
	TimeSpent  *float64        `json:"timeSpent"`
}

type SubmitInput struct {
	LessonID           uint
	AttemptID          uint
	UserID             uint
	Answers            []AnswerInput
	TimeSpent          *float64
	IncludeDetails     bool
	IncludeExplanation *bool
}

type AnswerDetail struct {
	QuestionID  uint        `json:"questionId"`
	IsCorrect   *bool       `json:"isCorrect"`
	EarnedScore int         `json:"earnedScore"`
	Expected    interface{} `json:"expected"`
	Explanation *string     `json:"explanation,omitempty"`
}

type SubmitResult struct {
	AttemptID      uint           `json:"attemptId"`
	Score          int            `json:"score"`
	Pass           bool           `json:"pass"`
	PassScore      *int           `json:"passScore"`
	CorrectCount   int            `json:"correctCount"`
	GradableCount  int            `json:"gradableCount"`
	TotalQuestions int            `json:"totalQuestions"`
	TimeSpent      int            `json:"timeSpent"`
	SubmittedAt    time.Time      `json:"submittedAt"`
	Details        []AnswerDetail `json:"details,omitempty"`
}

// Submit grades a full answer set and completes the attempt. Answer rows and
// the status change commit together; a submit that loses to a concurrent one
// leaves nothing behind.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	attempt, err := s.repo.GetAttempt(ctx, in.AttemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}
	if attempt.UserID != in.UserID {
		return nil, ErrNotOwner
	}
	if attempt.LessonID != in.LessonID {
		return nil, ErrLessonMismatch
	}
	switch attempt.Status {
	case models.AttemptInProgress:
	case models.AttemptCompleted:
		return nil, ErrAlreadyCompleted
	default:
		return nil, ErrAttemptNotInProgress
	}

	frozen := []uint(attempt.QuestionIDs)
	byQuestion, err := matchAnswers(frozen, in.Answers)
	if err != nil {
		return nil, err
	}

	keys, err := s.questions.FindGradingData(ctx, frozen)
	if err != nil {
		return nil, err
	}

	snapshot := attempt.ConfigSnapshot.Data()
	showExplanation := snapshot.ShowExplanationOnSubmit
	if in.IncludeExplanation != nil {
		showExplanation = *in.IncludeExplanation
	}

	var (
		correct, gradable, answerTime int
		rows                          = make([]models.UserAnswer, 0, len(frozen))
		details                       []AnswerDetail
	)
	for _, qid := range frozen {
		answer := byQuestion[qid]
		q := keys[qid]
		result := grading.GradeQuestion(q.Type, answer.Response, json.RawMessage(q.CorrectAnswer))
		if result.Gradable() {
			gradable++
		}
		if result.Correct() {
			correct++
		}
		spent := seconds(answer.TimeSpent)
		answerTime += spent

		rows = append(rows, models.UserAnswer{
			LessonAttemptID: attempt.ID,
			QuestionID:      qid,
			Response:        datatypes.JSON(answer.Response),
			IsCorrect:       result.IsCorrect,
			TimeSpent:       spent,
			EarnedScore:     result.EarnedScore,
		})

		if in.IncludeDetails {
			d := AnswerDetail{
				QuestionID:  qid,
				IsCorrect:   result.IsCorrect,
				EarnedScore: result.EarnedScore,
				Expected:    result.Expected,
			}
			if showExplanation {
				explanation := q.Explanation
				d.Explanation = &explanation
			}
			details = append(details, d)
		}
	}

	score := Score(correct, gradable)
	timeSpent := answerTime
	if in.TimeSpent != nil && *in.TimeSpent >= 0 {
		timeSpent = seconds(in.TimeSpent)
	}
	submittedAt := s.now()

	err = s.repo.Transaction(ctx, func(tx *Repository) error {
		if err := tx.CreateAnswers(ctx, rows); err != nil {
			return err
		}
		ok, err := tx.CompleteAttempt(ctx, attempt.ID, Completion{
			SubmittedAt:    submittedAt,
			Score:          score,
			CorrectCount:   correct,
			TotalQuestions: len(frozen),
			TimeSpent:      timeSpent,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyCompleted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pass := Passed(score, snapshot.PassScore)
	s.log.Info("attempt submitted", "attempt_id", attempt.ID, "user_id", in.UserID, "score", score, "pass", pass)
	s.notifier.NotifyUser(in.UserID, EventAttemptCompleted, map[string]interface{}{
		"attemptId": attempt.ID,
		"lessonId":  attempt.LessonID,
		"score":     score,
		"pass":      pass,
	})

	return &SubmitResult{
		AttemptID:      attempt.ID,
		Score:          score,
		Pass:           pass,
		PassScore:      snapshot.PassScore,
		CorrectCount:   correct,
		GradableCount:  gradable,
		TotalQuestions: len(frozen),
		TimeSpent:      timeSpent,
		SubmittedAt:    submittedAt,
		Details:        details,
	}, nil
}

// matchAnswers checks that answers cover exactly the frozen question set.
func matchAnswers(frozen []uint, answers []AnswerInput) (map[uint]AnswerInput, error) {
	allowed := make(map[uint]bool, len(frozen))
	for _, id := range frozen {
		allowed[id] = true
	}
	byQuestion := make(map[uint]AnswerInput, len(answers))
	for _, a := range answers {
		if !allowed[a.QuestionID] {
			return nil, apierr.Validationf("question %d is not part of this attempt", a.QuestionID)
		}
		if _, dup := byQuestion[a.QuestionID]; dup {
			return nil, apierr.Validationf("duplicate answer for question %d", a.QuestionID)
		}
		byQuestion[a.QuestionID] = a
	}
	if len(byQuestion) != len(allowed) {
		return nil, apierr.Validationf("expected %d answers, got %d", len(allowed), len(byQuestion))
	}
	return byQuestion, nil
}

// Score is round-half-up(100*correct/gradable), 0 when nothing is gradable.
func Score(correct, gradable int) int {
	if gradable <= 0 {
		return 0
	}
	return int(math.Floor(100*float64(correct)/float64(gradable) + 0.5))
}

// Passed is true when no pass score is set.
func Passed(score int, passScore *int) bool {
	if passScore == nil {
		return true
	}
	return score >= *passScore
}

// seconds truncates a reported duration; missing or negative counts as 0.
func seconds(v *float64) int {
	if v == nil || *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return int(math.Trunc(*v))
}

type AttemptView struct {
	ID             uint                 `json:"id"`
	Status         models.AttemptStatus `json:"status"`
	StartedAt      time.Time            `json:"startedAt"`
	SubmittedAt    *time.Time           `json:"submittedAt"`
	Score          *int                 `json:"score"`
	CorrectCount   *int                 `json:"correctCount"`
	TotalQuestions int                  `json:"totalQuestions"`
	TimeSpent      *int                 `json:"timeSpent"`
}

type ResultQuestion struct {
	ID          uint                `json:"id"`
	Content     string              `json:"content"`
	Type        models.QuestionType `json:"type"`
	Options     datatypes.JSON      `json:"options"`
	Explanation *string             `json:"explanation,omitempty"`
}

type ResultAnswer struct {
	ID          uint            `json:"id"`
	QuestionID  uint            `json:"questionId"`
	Response    json.RawMessage `json:"response"`
	IsCorrect   *bool           `json:"isCorrect"`
	TimeSpent   int             `json:"timeSpent"`
	EarnedScore int             `json:"earnedScore"`
	CreatedAt   time.Time       `json:"createdAt"`
	Question    *ResultQuestion `json:"question"`
}

type AttemptResult struct {
	Attempt      AttemptView           `json:"attempt"`
	Lesson       *models.LessonSummary `json:"lesson"`
	QuestionBank *models.BankSummary   `json:"questionBank"`
	Answers      []ResultAnswer        `json:"answers"`
}

// Result returns an attempt with its answers to the attempt's owner.
func (s *Service) Result(ctx context.Context, attemptID, userID uint, includeExplanation bool) (*AttemptResult, error) {
	attempt, err := s.repo.GetAttemptDetail(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}
	if attempt.UserID != userID {
		return nil, ErrNotOwner
	}

	out := &AttemptResult{
		Attempt: viewOf(attempt),
		Answers: make([]ResultAnswer, 0, len(attempt.Answers)),
	}
	if attempt.Lesson != nil {
		summary := attempt.Lesson.Summary()
		out.Lesson = &summary
	}
	if attempt.QuestionBank != nil {
		summary := attempt.QuestionBank.Summary()
		out.QuestionBank = &summary
	}
	for _, a := range attempt.Answers {
		ra := ResultAnswer{
			ID:          a.ID,
			QuestionID:  a.QuestionID,
			Response:    rawOrNull(a.Response),
			IsCorrect:   a.IsCorrect,
			TimeSpent:   a.TimeSpent,
			EarnedScore: a.EarnedScore,
			CreatedAt:   a.CreatedAt,
		}
		if q := a.Question; q != nil {
			ra.Question = &ResultQuestion{ID: q.ID, Content: q.Content, Type: q.Type, Options: q.Options}
			if includeExplanation {
				explanation := q.Explanation
				ra.Question.Explanation = &explanation
			}
		}
		out.Answers = append(out.Answers, ra)
	}
	return out, nil
}

func viewOf(a *models.LessonAttempt) AttemptView {
	return AttemptView{
		ID:             a.ID,
		Status:         a.Status,
		StartedAt:      a.StartedAt,
		SubmittedAt:    a.SubmittedAt,
		Score:          a.Score,
		CorrectCount:   a.CorrectCount,
		TotalQuestions: a.TotalQuestions,
		TimeSpent:      a.TimeSpent,
	}
}

func rawOrNull(j datatypes.JSON) json.RawMessage {
	if len(j) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(j)
}

type HistoryQuery struct {
	Page       int
	PageSize   int
	Q          string
	MinScore   *int
	LessonType string
}

type HistoryEntry struct {
	AttemptID      uint                  `json:"attemptId"`
	Status         models.AttemptStatus  `json:"status"`
	StartedAt      time.Time             `json:"startedAt"`
	SubmittedAt    *time.Time            `json:"submittedAt"`
	Score          *int                  `json:"score"`
	CorrectCount   *int                  `json:"correctCount"`
	TotalQuestions int                   `json:"totalQuestions"`
	TimeSpent      *int                  `json:"timeSpent"`
	Lesson         *models.LessonSummary `json:"lesson"`
	QuestionBank   *models.BankSummary   `json:"questionBank"`
}

type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	PageCount int   `json:"pageCount"`
	Total     int64 `json:"total"`
}

type HistoryPage struct {
	Data []HistoryEntry `json:"data"`
	Meta struct {
		Pagination Pagination `json:"pagination"`
	} `json:"meta"`
}

// History lists the user's completed attempts, newest submission first.
func (s *Service) History(ctx context.Context, userID uint, q HistoryQuery) (*HistoryPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	switch {
	case pageSize == 0:
		pageSize = defaultHistoryPageSize
	case pageSize < 1:
		pageSize = 1
	case pageSize > maxHistoryPageSize:
		pageSize = maxHistoryPageSize
	}
	lessonType := models.LessonType(q.LessonType)
	if lessonType != "" && !lessonType.Valid() {
		return nil, ErrInvalidLessonType
	}

	rows, total, err := s.repo.ListHistory(ctx, HistoryFilter{
		UserID:     userID,
		Query:      q.Q,
		MinScore:   q.MinScore,
		LessonType: lessonType,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
	})
	if err != nil {
		return nil, err
	}

	out := &HistoryPage{Data: make([]HistoryEntry, 0, len(rows))}
	for i := range rows {
		a := &rows[i]
		entry := HistoryEntry{
			AttemptID:      a.ID,
			Status:         a.Status,
			StartedAt:      a.StartedAt,
			SubmittedAt:    a.SubmittedAt,
			Score:          a.Score,
			CorrectCount:   a.CorrectCount,
			TotalQuestions: a.TotalQuestions,
			TimeSpent:      a.TimeSpent,
		}
		if a.Lesson != nil {
			summary := a.Lesson.Summary()
			entry.Lesson = &summary
		}
		if a.QuestionBank != nil {
			summary := a.QuestionBank.Summary()
			entry.QuestionBank = &summary
		}
		out.Data = append(out.Data, entry)
	}
	out.Meta.Pagination = Pagination{
		Page:      page,
		PageSize:  pageSize,
		PageCount: int((total + int64(pageSize) - 1) / int64(pageSize)),
		Total:     total,
	}
	return out, nil
}

type BankPreview struct {
	QuestionBank    models.BankSummary   `json:"questionBank"`
	EstimatedCount  int64                `json:"estimatedCount"`
	SampleCount     int                  `json:"sampleCount"`
	SampleQuestions []models.QuestionDTO `json:"sampleQuestions"`
}

// PreviewBank returns a shuffled sample of a bank and an estimated pool
// size. The estimate may be up to the cache TTL stale.
func (s *Service) PreviewBank(ctx context.Context, bankID uint, sample int) (*BankPreview, error) {
	if sample <= 0 {
		sample = defaultPreviewSample
	}
	if sample > maxPreviewSample {
		sample = maxPreviewSample
	}

	bank, err := s.repo.GetBank(ctx, bankID)
	if err != nil {
		return nil, err
	}
	if bank == nil {
		return nil, ErrBankNotFound
	}
	if !bank.Active {
		return nil, ErrBankInactive
	}
	filters := bank.Filters.Data()

	var (
		estimated int64
		questions []models.QuestionDTO
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.estimateCount(gctx, bank.ID, filters)
		estimated = n
		return err
	})
	g.Go(func() error {
		qs, err := s.selector.SelectQuestions(gctx, question.SelectOptions{
			Count:      sample,
			Shuffle:    true,
			Filters:    filters,
			Oversample: question.Oversample(sample, previewOversampleCap),
		})
		questions = qs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := bank.Summary()
	description := bank.Description
	summary.Description = &description
	return &BankPreview{
		QuestionBank:    summary,
		EstimatedCount:  estimated,
		SampleCount:     len(questions),
		SampleQuestions: questions,
	}, nil
}

// CountCacheKey identifies a bank's pool size under a given filter.
func CountCacheKey(bankID uint, f models.BankFilters) string {
	b, _ := json.Marshal(f)
	return fmt.Sprintf("qb:%d:%s", bankID, b)
}

func (s *Service) estimateCount(ctx context.Context, bankID uint, f models.BankFilters) (int64, error) {
	key := CountCacheKey(bankID, f)
	if n, ok, err := s.counts.GetCount(ctx, key); err != nil {
		s.log.Warn("count cache read failed", "key", key, "error", err)
	} else if ok {
		return n, nil
	}

	n, err := s.questions.CountMatching(ctx, f)
	if err != nil {
		return 0, err
	}
	if err := s.counts.SetCount(ctx, key, n, s.countTTL); err != nil {
		s.log.Warn("count cache write failed", "key", key, "error", err)
	}
	return n, nil
}
