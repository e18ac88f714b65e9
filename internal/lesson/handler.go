// backend/internal/lesson/handler.go
package lesson

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"lesson-system/internal/apierr"
	"lesson-system/internal/auth"
	"lesson-system/internal/request"
	"lesson-system/internal/response"
	"lesson-system/pkg/logger"
)

type Handler struct {
	service *Service
	log     *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

type SubmitRequest struct {
	AttemptID          uint          `json:"attemptId" validate:"required"`
	Answers            []AnswerInput `json:"answers" validate:"required"`
	TimeSpent          *float64      `json:"timeSpent"`
	IncludeDetails     *bool         `json:"includeDetails"`
	IncludeExplanation *bool         `json:"includeExplanation"`
}

// RegisterRoutes mounts the lesson endpoints. requireUser guards the
// endpoints that act on behalf of a user.
func (h *Handler) RegisterRoutes(r *mux.Router, requireUser func(http.Handler) http.Handler) {
	r.HandleFunc("/lessons/{id}/start", h.Preview).Methods(http.MethodGet)
	r.Handle("/lessons/{id}/start", requireUser(http.HandlerFunc(h.Start))).Methods(http.MethodPost)
	r.Handle("/lessons/{id}/submit", requireUser(http.HandlerFunc(h.Submit))).Methods(http.MethodPost)
	r.Handle("/lesson-attempts/{id}/result", requireUser(http.HandlerFunc(h.Result))).Methods(http.MethodGet)
	r.Handle("/me/lesson-history", requireUser(http.HandlerFunc(h.History))).Methods(http.MethodGet)
	r.HandleFunc("/question-banks/{id}/preview", h.PreviewBank).Methods(http.MethodGet)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	lessonID, err := pathID(r, "Invalid lesson id")
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	result, err := h.service.Preview(r.Context(), lessonID)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	response.OK(w, result)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, h.log, apierr.Unauthorized("Unauthorized"))
		return
	}
	lessonID, err := pathID(r, "Invalid lesson id")
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	result, err := h.service.StartAttempt(r.Context(), lessonID, userID)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	response.OK(w, result)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, h.log, apierr.Unauthorized("Unauthorized"))
		return
	}
	lessonID, err := pathID(r, "Invalid lesson id")
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	var req SubmitRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, h.log, err)
		return
	}

	result, err := h.service.Submit(r.Context(), SubmitInput{
		LessonID:           lessonID,
		AttemptID:          req.AttemptID,
		UserID:             userID,
		Answers:            req.Answers,
		TimeSpent:          req.TimeSpent,
		IncludeDetails:     req.IncludeDetails != nil && *req.IncludeDetails,
		IncludeExplanation: req.IncludeExplanation,
	})
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	response.OK(w, result)
}

func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, h.log, apierr.Unauthorized("Unauthorized"))
		return
	}
	attemptID, err := pathID(r, "Invalid attempt id")
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	includeExplanation := r.URL.Query().Get("includeExplanation") == "true"

	result, err := h.service.Result(r.Context(), attemptID, userID, includeExplanation)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	response.OK(w, result)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, h.log, apierr.Unauthorized("Unauthorized"))
		return
	}
	q, err := ParseHistoryQuery(r.URL.Query())
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	page, err := h.service.History(r.Context(), userID, q)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	response.OK(w, page)
}

func (h *Handler) PreviewBank(w http.ResponseWriter, r *http.Request) {
	bankID, err := pathID(r, "Invalid question bank id")
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	query := r.URL.Query()
	raw := query.Get("sample")
	if raw == "" {
		raw = query.Get("count")
	}
	sample := defaultPreviewSample
	if n, ok := parseInt(raw); ok {
		sample = clamp(n, 1, maxPreviewSample)
	}

	result, err := h.service.PreviewBank(r.Context(), bankID, sample)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	response.OK(w, result)
}

// ParseHistoryQuery reads page, pageSize, q, minScore and lessonType.
// Unparseable numbers fall back to their defaults; out-of-range ones are
// clamped. A present but empty minScore filters to scores above 0.
func ParseHistoryQuery(v url.Values) (HistoryQuery, error) {
	q := HistoryQuery{Page: 1, PageSize: defaultHistoryPageSize}
	if n, ok := parseInt(v.Get("page")); ok {
		q.Page = clamp(n, 1, math.MaxInt32)
	}
	if n, ok := parseInt(v.Get("pageSize")); ok {
		q.PageSize = clamp(n, 1, maxHistoryPageSize)
	}
	q.Q = strings.TrimSpace(v.Get("q"))
	if v.Has("minScore") {
		raw := strings.TrimSpace(v.Get("minScore"))
		if raw == "" {
			zero := 0
			q.MinScore = &zero
		} else if n, ok := parseInt(raw); ok {
			q.MinScore = &n
		}
	}
	if v.Has("lessonType") {
		q.LessonType = v.Get("lessonType")
		if q.LessonType == "" {
			return q, ErrInvalidLessonType
		}
	}
	return q, nil
}

func pathID(r *http.Request, msg string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil || id == 0 {
		return 0, apierr.Validation(msg)
	}
	return uint(id), nil
}

// parseInt accepts any finite number and truncates it toward zero.
func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Trunc(f)
	if f > math.MaxInt32 {
		f = math.MaxInt32
	}
	if f < math.MinInt32 {
		f = math.MinInt32
	}
	return int(f), true
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
