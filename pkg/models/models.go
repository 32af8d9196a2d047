package models

import "strings"

const (
	// TiebreakerTag marks the final question of the bank. Matched case-insensitively.
	TiebreakerTag = "TIEBREAKER"
	// TiebreakerPrefix is prepended to the last question when it lacks the tag.
	TiebreakerPrefix = "🏆 TIEBREAKER: "
	// OptionCount is the number of answer options every question carries.
	OptionCount = 4
)

// Question estructura para representar una pregunta del quiz
type Question struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  int      `json:"correct"`
}

// HasTiebreakerTag reports whether the question text carries the tiebreaker marker.
func (q Question) HasTiebreakerTag() bool {
	return strings.Contains(strings.ToUpper(q.Question), TiebreakerTag)
}

// Public returns the question with the answer withheld.
func (q Question) Public() QuestionView {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return QuestionView{
		ID:       q.ID,
		Question: q.Question,
		Options:  options,
	}
}

// QuestionView is what the player display receives: no correct index.
type QuestionView struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// QuestionInput is one entry of an import batch or a seed file. Pointer fields let
// the importer tell a missing key apart from a zero value.
type QuestionInput struct {
	Question *string  `json:"question" yaml:"question"`
	Options  []string `json:"options" yaml:"options"`
	Correct  *int     `json:"correct" yaml:"correct"`
}

// APIResponse estructura estándar para respuestas de API
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// QuestionResponse respuesta específica para preguntas
type QuestionResponse struct {
	Questions []Question `json:"questions,omitempty"`
	Count     int        `json:"count"`
}
