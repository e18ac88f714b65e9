// backend/internal/models/question.go
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionListening      QuestionType = "listening"
	QuestionMatching       QuestionType = "matching"
)

const (
	QuestionPublished = "published"
	QuestionDraft     = "draft"
)

type Question struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
	Content       string         `json:"content" gorm:"type:text;not null"`
	Type          QuestionType   `json:"type" gorm:"size:32;not null;index:questions_type_idx;index:questions_type_difficulty_idx,priority:1"`
	Options       datatypes.JSON `json:"options"`
	CorrectAnswer datatypes.JSON `json:"-"`
	Explanation   string         `json:"-" gorm:"type:text"`
	Difficulty    *int           `json:"difficulty" gorm:"index:questions_difficulty_idx;index:questions_type_difficulty_idx,priority:2;index:questions_status_difficulty_idx,priority:2"`
	Status        string         `json:"status" gorm:"size:16;not null;default:published;index:questions_status_idx;index:questions_status_difficulty_idx,priority:1"`
	Levels        []Level        `json:"levels,omitempty" gorm:"many2many:question_levels;"`
	Skills        []Skill        `json:"skills,omitempty" gorm:"many2many:question_skills;"`
	Topics        []Topic        `json:"topics,omitempty" gorm:"many2many:question_topics;"`
}

type Level struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Code string `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name string `json:"name"`
}

type Skill struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Code string `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name string `json:"name"`
}

type Topic struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Code string `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name string `json:"name"`
}

type RandomizationStrategy string

const (
	RandomizationRandom     RandomizationStrategy = "random"
	RandomizationWeighted   RandomizationStrategy = "weighted"
	RandomizationFixedOrder RandomizationStrategy = "fixed_order"
)

// BankFilters selects questions by tag code. Empty lists do not filter.
type BankFilters struct {
	Levels []string `json:"levels,omitempty"`
	Skills []string `json:"skills,omitempty"`
	Topics []string `json:"topics,omitempty"`
}

// UnmarshalJSON accepts both the short keys and the *Codes aliases and
// stringifies non-string entries, dropping empty ones.
func (f *BankFilters) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// null or a non-object filter means "no filter"
		*f = BankFilters{}
		return nil
	}
	pick := func(primary, alias string) []string {
		v, ok := raw[primary]
		if !ok || string(v) == "null" {
			v = raw[alias]
		}
		return codeList(v)
	}
	*f = BankFilters{
		Levels: pick("levels", "levelCodes"),
		Skills: pick("skills", "skillCodes"),
		Topics: pick("topics", "topicCodes"),
	}
	return nil
}

func codeList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		switch v := item.(type) {
		case nil:
			continue
		case string:
			s = v
		default:
			s = fmt.Sprint(v)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (f BankFilters) IsEmpty() bool {
	return len(f.Levels) == 0 && len(f.Skills) == 0 && len(f.Topics) == 0
}

type QuestionBank struct {
	ID                    uint                            `json:"id" gorm:"primaryKey"`
	CreatedAt             time.Time                       `json:"created_at"`
	UpdatedAt             time.Time                       `json:"updated_at"`
	DeletedAt             gorm.DeletedAt                  `json:"-" gorm:"index"`
	Name                  string                          `json:"name" gorm:"not null"`
	Description           string                          `json:"description"`
	Filters               datatypes.JSONType[BankFilters] `json:"filters"`
	DefaultQuestionCount  int                             `json:"default_question_count"`
	Shuffle               bool                            `json:"shuffle" gorm:"not null"`
	Active                bool                            `json:"active" gorm:"not null"`
	RandomizationStrategy RandomizationStrategy           `json:"randomization_strategy" gorm:"size:32;default:random"`
}
