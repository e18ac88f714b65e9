// backend/internal/grading/grading.go

// Package grading evaluates a submitted response against a question's
// correct-answer definition. Everything here is pure.
package grading

import (
	"encoding/json"
	"strings"

	"lesson-system/internal/models"
)

// Result of grading one answer. IsCorrect is nil when the question cannot be
// graded automatically, which is distinct from a wrong answer.
type Result struct {
	IsCorrect   *bool       `json:"isCorrect"`
	EarnedScore int         `json:"earnedScore"`
	Expected    interface{} `json:"expected"`
}

// Gradable reports whether the result counts towards the score denominator.
func (r Result) Gradable() bool { return r.IsCorrect != nil }

func (r Result) Correct() bool { return r.IsCorrect != nil && *r.IsCorrect }

// AnswerKey is the parsed correct-answer definition of a question. The
// variants are closed to this package; each one knows how to grade itself.
type AnswerKey interface {
	grade(response interface{}) Result
}

type choiceKey struct {
	answerID string
}

type textKey struct {
	original interface{}
	expected string
}

type booleanKey struct {
	answer bool
}

// freeResponseKey marks author-flagged free-response prompts ("example: ...").
type freeResponseKey struct {
	original interface{}
}

type ungradableKey struct{}

// ParseAnswerKey turns a type tag and its raw correct-answer JSON into a key.
func ParseAnswerKey(qtype models.QuestionType, correctAnswer json.RawMessage) AnswerKey {
	correct := decode(correctAnswer)
	switch qtype {
	case models.QuestionMultipleChoice, models.QuestionSingleChoice:
		id := answerIDOf(correct)
		if id == "" {
			return ungradableKey{}
		}
		return choiceKey{answerID: id}

	case models.QuestionFillBlank, models.QuestionListening:
		original := fieldOf(correct, "answer")
		expected := normalizeText(original)
		if expected == "" {
			return ungradableKey{}
		}
		return textKey{original: original, expected: expected}

	case models.QuestionTrueFalse:
		b, ok := fieldOf(correct, "answer").(bool)
		if !ok {
			return ungradableKey{}
		}
		return booleanKey{answer: b}

	case models.QuestionShortAnswer:
		original := fieldOf(correct, "answer")
		expected := normalizeText(original)
		if expected == "" {
			return ungradableKey{}
		}
		if strings.HasPrefix(expected, "example:") {
			return freeResponseKey{original: original}
		}
		return textKey{original: original, expected: expected}

	case models.QuestionMatching:
		return ungradableKey{}
	}
	return ungradableKey{}
}

// GradeQuestion grades one response.
func GradeQuestion(qtype models.QuestionType, response, correctAnswer json.RawMessage) Result {
	return Grade(ParseAnswerKey(qtype, correctAnswer), response)
}

func Grade(key AnswerKey, response json.RawMessage) Result {
	return key.grade(decode(response))
}

func (k choiceKey) grade(response interface{}) Result {
	expected := map[string]interface{}{"answerId": k.answerID}
	selected := answerIDOf(response)
	if selected == "" {
		return incorrect(expected)
	}
	return outcome(selected == k.answerID, expected)
}

func (k textKey) grade(response interface{}) Result {
	expected := map[string]interface{}{"answer": k.original}
	given := normalizeText(textOf(response))
	if given == "" {
		return incorrect(expected)
	}
	return outcome(given == k.expected, expected)
}

func (k booleanKey) grade(response interface{}) Result {
	expected := map[string]interface{}{"answer": k.answer}
	given, ok := booleanOf(response)
	if !ok {
		return incorrect(expected)
	}
	return outcome(given == k.answer, expected)
}

func (k freeResponseKey) grade(interface{}) Result {
	return Result{EarnedScore: 0, Expected: map[string]interface{}{"answer": k.original}}
}

func (ungradableKey) grade(interface{}) Result {
	return Result{EarnedScore: 0, Expected: nil}
}

func outcome(correct bool, expected interface{}) Result {
	score := 0
	if correct {
		score = 1
	}
	return Result{IsCorrect: &correct, EarnedScore: score, Expected: expected}
}

func incorrect(expected interface{}) Result {
	return outcome(false, expected)
}

func decode(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func fieldOf(v interface{}, key string) interface{} {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	return obj[key]
}

func normalizeText(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// answerIDOf accepts "B", {"answerId": "B"} or {"id": "B"}.
func answerIDOf(v interface{}) string {
	switch t := v.(type) {
	case string:
		return normalizeID(t)
	case map[string]interface{}:
		if s, ok := t["answerId"].(string); ok {
			return normalizeID(s)
		}
		if s, ok := t["id"].(string); ok {
			return normalizeID(s)
		}
	}
	return ""
}

func textOf(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		if s, ok := t["answer"].(string); ok {
			return s
		}
	}
	return ""
}

func booleanOf(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case map[string]interface{}:
		if b, ok := t["answer"].(bool); ok {
			return b, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}
