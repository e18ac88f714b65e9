package grading

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lesson-system/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func TestGradeQuestion(t *testing.T) {
	tests := []struct {
		name         string
		qtype        models.QuestionType
		response     string
		correct      string
		wantCorrect  *bool
		wantEarned   int
		wantExpected interface{}
	}{
		{
			name:         "multiple choice matches case-insensitively",
			qtype:        models.QuestionMultipleChoice,
			response:     `" b "`,
			correct:      `{"answerId":"B"}`,
			wantCorrect:  boolPtr(true),
			wantEarned:   1,
			wantExpected: map[string]interface{}{"answerId": "B"},
		},
		{
			name:         "single choice accepts wrapped response",
			qtype:        models.QuestionSingleChoice,
			response:     `{"answerId":"c"}`,
			correct:      `{"answerId":"B"}`,
			wantCorrect:  boolPtr(false),
			wantEarned:   0,
			wantExpected: map[string]interface{}{"answerId": "B"},
		},
		{
			name:         "choice accepts id object response",
			qtype:        models.QuestionMultipleChoice,
			response:     `{"id":"a"}`,
			correct:      `"A"`,
			wantCorrect:  boolPtr(true),
			wantEarned:   1,
			wantExpected: map[string]interface{}{"answerId": "A"},
		},
		{
			name:         "choice without expected id is ungradable",
			qtype:        models.QuestionMultipleChoice,
			response:     `"A"`,
			correct:      `{}`,
			wantCorrect:  nil,
			wantExpected: nil,
		},
		{
			name:         "choice with missing response is wrong",
			qtype:        models.QuestionMultipleChoice,
			response:     `null`,
			correct:      `{"answerId":"A"}`,
			wantCorrect:  boolPtr(false),
			wantExpected: map[string]interface{}{"answerId": "A"},
		},
		{
			name:         "fill blank normalizes text",
			qtype:        models.QuestionFillBlank,
			response:     `"  Went "`,
			correct:      `{"answer":"went"}`,
			wantCorrect:  boolPtr(true),
			wantEarned:   1,
			wantExpected: map[string]interface{}{"answer": "went"},
		},
		{
			name:         "listening grades like fill blank",
			qtype:        models.QuestionListening,
			response:     `{"answer":"goes"}`,
			correct:      `{"answer":"Went"}`,
			wantCorrect:  boolPtr(false),
			wantExpected: map[string]interface{}{"answer": "Went"},
		},
		{
			name:         "fill blank with empty expected is ungradable",
			qtype:        models.QuestionFillBlank,
			response:     `"went"`,
			correct:      `{"answer":"   "}`,
			wantCorrect:  nil,
			wantExpected: nil,
		},
		{
			name:         "true false with boolean response",
			qtype:        models.QuestionTrueFalse,
			response:     `true`,
			correct:      `{"answer":true}`,
			wantCorrect:  boolPtr(true),
			wantEarned:   1,
			wantExpected: map[string]interface{}{"answer": true},
		},
		{
			name:         "true false with string response",
			qtype:        models.QuestionTrueFalse,
			response:     `"false"`,
			correct:      `{"answer":true}`,
			wantCorrect:  boolPtr(false),
			wantExpected: map[string]interface{}{"answer": true},
		},
		{
			name:         "true false with null response is wrong",
			qtype:        models.QuestionTrueFalse,
			response:     `null`,
			correct:      `{"answer":true}`,
			wantCorrect:  boolPtr(false),
			wantExpected: map[string]interface{}{"answer": true},
		},
		{
			name:         "true false with wrapped response",
			qtype:        models.QuestionTrueFalse,
			response:     `{"answer":false}`,
			correct:      `{"answer":false}`,
			wantCorrect:  boolPtr(true),
			wantEarned:   1,
			wantExpected: map[string]interface{}{"answer": false},
		},
		{
			name:         "true false with non boolean expected is ungradable",
			qtype:        models.QuestionTrueFalse,
			response:     `true`,
			correct:      `{"answer":"true"}`,
			wantCorrect:  nil,
			wantExpected: nil,
		},
		{
			name:         "short answer exact text",
			qtype:        models.QuestionShortAnswer,
			response:     `"Paris"`,
			correct:      `{"answer":"paris"}`,
			wantCorrect:  boolPtr(true),
			wantEarned:   1,
			wantExpected: map[string]interface{}{"answer": "paris"},
		},
		{
			name:         "short answer example prefix is ungradable",
			qtype:        models.QuestionShortAnswer,
			response:     `"I like tea."`,
			correct:      `{"answer":"Example: any valid sentence"}`,
			wantCorrect:  nil,
			wantExpected: map[string]interface{}{"answer": "Example: any valid sentence"},
		},
		{
			name:         "matching is never machine graded",
			qtype:        models.QuestionMatching,
			response:     `{"a":"1"}`,
			correct:      `{"answer":{"a":"1"}}`,
			wantCorrect:  nil,
			wantExpected: nil,
		},
		{
			name:         "unknown type is ungradable",
			qtype:        models.QuestionType("essay"),
			response:     `"x"`,
			correct:      `{"answer":"x"}`,
			wantCorrect:  nil,
			wantExpected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GradeQuestion(tt.qtype, json.RawMessage(tt.response), json.RawMessage(tt.correct))

			assert.Equal(t, tt.wantCorrect, got.IsCorrect)
			assert.Equal(t, tt.wantEarned, got.EarnedScore)
			assert.Equal(t, tt.wantExpected, got.Expected)
		})
	}
}

func TestGradeQuestion_IsPure(t *testing.T) {
	response := json.RawMessage(`"b"`)
	correct := json.RawMessage(`{"answerId":"B"}`)

	first := GradeQuestion(models.QuestionMultipleChoice, response, correct)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, GradeQuestion(models.QuestionMultipleChoice, response, correct))
	}
}

func TestGradeQuestion_MissingResponse(t *testing.T) {
	got := GradeQuestion(models.QuestionFillBlank, nil, json.RawMessage(`{"answer":"went"}`))

	require.NotNil(t, got.IsCorrect)
	assert.False(t, *got.IsCorrect)
	assert.True(t, got.Gradable())
	assert.False(t, got.Correct())
}
