// backend/internal/models/dto.go
package models

import "gorm.io/datatypes"

// QuestionDTO is the learner-safe view of a question: no correct answer, no explanation.
type QuestionDTO struct {
	ID         uint           `json:"id"`
	Content    string         `json:"content"`
	Type       QuestionType   `json:"type"`
	Options    datatypes.JSON `json:"options"`
	Difficulty *int           `json:"difficulty"`
}

func (q Question) ToDTO() QuestionDTO {
	options := q.Options
	if len(options) == 0 {
		options = nil
	}
	return QuestionDTO{
		ID:         q.ID,
		Content:    q.Content,
		Type:       q.Type,
		Options:    options,
		Difficulty: q.Difficulty,
	}
}

func ToDTOs(questions []Question) []QuestionDTO {
	out := make([]QuestionDTO, len(questions))
	for i, q := range questions {
		out[i] = q.ToDTO()
	}
	return out
}

type LessonSummary struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	LessonType  LessonType `json:"lessonType,omitempty"`
	PassScore   *int       `json:"passScore,omitempty"`
	TimeLimit   *int       `json:"timeLimit,omitempty"`
}

func (l Lesson) Summary() LessonSummary {
	return LessonSummary{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		LessonType:  l.LessonType,
		PassScore:   l.PassScore,
		TimeLimit:   l.TimeLimit,
	}
}

type BankSummary struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

func (b QuestionBank) Summary() BankSummary {
	return BankSummary{ID: b.ID, Name: b.Name}
}
