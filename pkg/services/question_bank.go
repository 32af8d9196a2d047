package services

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/backsoul/trivia/pkg/models"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed default_questions.yaml
var defaultQuestionsYAML []byte

// QuestionBank owns the ordered list of questions. The entry at the highest index is
// always the tiebreaker, and ids always equal positions. It does no locking of its own:
// the GameEngine serializes every access.
type QuestionBank struct {
	questions []models.Question
}

// NewQuestionBank crea un banco a partir de preguntas ya validadas
func NewQuestionBank(questions []models.Question) *QuestionBank {
	b := &QuestionBank{questions: cloneQuestions(questions)}
	b.normalize()
	return b
}

// DefaultQuestions returns the bank shipped with the binary.
func DefaultQuestions() ([]models.Question, error) {
	return parseYAMLQuestions(defaultQuestionsYAML)
}

// LoadQuestionsFromFile carga las preguntas desde un archivo JSON o YAML
func LoadQuestionsFromFile(path string) ([]models.Question, error) {
	log.Info().Str("path", path).Msg("📂 loading question bank")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAMLQuestions(data)
	default:
		return ParseImport(string(data))
	}
}

func parseYAMLQuestions(data []byte) ([]models.Question, error) {
	var inputs []models.QuestionInput
	if err := yaml.Unmarshal(data, &inputs); err != nil {
		return nil, validationError("Invalid YAML: %v", err)
	}
	return buildQuestions(inputs)
}

// ParseImport decodes and validates an import batch. Any bad entry rejects the batch.
func ParseImport(jsonText string) ([]models.Question, error) {
	var inputs []models.QuestionInput
	if err := json.Unmarshal([]byte(jsonText), &inputs); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, validationError("Invalid format")
		}
		return nil, validationError("Invalid JSON")
	}
	return buildQuestions(inputs)
}

func buildQuestions(inputs []models.QuestionInput) ([]models.Question, error) {
	if len(inputs) == 0 {
		return nil, validationError("Invalid format")
	}

	questions := make([]models.Question, 0, len(inputs))
	for i, in := range inputs {
		if in.Question == nil || in.Options == nil || in.Correct == nil {
			return nil, validationError("Missing fields in question %d", i+1)
		}
		q, err := newQuestion(*in.Question, in.Options, *in.Correct)
		if err != nil {
			return nil, validationError("Question %d: %s", i+1, err.Error())
		}
		q.ID = i
		questions = append(questions, q)
	}
	return questions, nil
}

// newQuestion validates and trims the editable fields of a question.
func newQuestion(text string, options []string, correct int) (models.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Question{}, validationError("Question text cannot be empty")
	}
	if len(options) != models.OptionCount {
		return models.Question{}, validationError("Must have exactly %d options", models.OptionCount)
	}
	trimmed := make([]string, len(options))
	for i, opt := range options {
		trimmed[i] = strings.TrimSpace(opt)
		if trimmed[i] == "" {
			return models.Question{}, validationError("All options must be non-empty")
		}
	}
	if correct < 0 || correct >= models.OptionCount {
		return models.Question{}, validationError("Invalid correct option index")
	}
	return models.Question{Question: text, Options: trimmed, Correct: correct}, nil
}

// Count obtiene el número total de preguntas
func (b *QuestionBank) Count() int {
	return len(b.questions)
}

// TiebreakerID is the id of the last question, or -1 for an empty bank.
func (b *QuestionBank) TiebreakerID() int {
	return len(b.questions) - 1
}

func (b *QuestionBank) IsTiebreaker(id int) bool {
	return len(b.questions) > 0 && id == b.TiebreakerID()
}

func (b *QuestionBank) Exists(id int) bool {
	return id >= 0 && id < len(b.questions)
}

// Get obtiene una pregunta específica por ID
func (b *QuestionBank) Get(id int) (models.Question, bool) {
	if !b.Exists(id) {
		return models.Question{}, false
	}
	q := b.questions[id]
	q.Options = slices.Clone(q.Options)
	return q, true
}

// All obtiene todas las preguntas, con respuestas
func (b *QuestionBank) All() []models.Question {
	return cloneQuestions(b.questions)
}

// Add validates and inserts a question just before the tiebreaker slot.
func (b *QuestionBank) Add(text string, options []string, correct int) (int, error) {
	q, err := newQuestion(text, options, correct)
	if err != nil {
		return 0, err
	}

	pos := max(0, len(b.questions)-1)
	b.questions = slices.Insert(b.questions, pos, q)
	b.normalize()
	return pos, nil
}

// Edit replaces the fields of an existing question. Callers check game-state rules first.
func (b *QuestionBank) Edit(id int, text string, options []string, correct int) error {
	if !b.Exists(id) {
		return notFoundError("Invalid question ID")
	}
	q, err := newQuestion(text, options, correct)
	if err != nil {
		return err
	}
	b.questions[id] = q
	b.normalize()
	return nil
}

// CheckDeletable reports why id cannot be removed regardless of game state.
func (b *QuestionBank) CheckDeletable(id int) error {
	if !b.Exists(id) {
		return notFoundError("Invalid question ID")
	}
	if b.IsTiebreaker(id) {
		return validationError("Cannot delete tiebreaker question")
	}
	return nil
}

func (b *QuestionBank) Delete(id int) error {
	if err := b.CheckDeletable(id); err != nil {
		return err
	}
	b.questions = slices.Delete(b.questions, id, id+1)
	b.normalize()
	return nil
}

// Replace swaps the whole bank atomically.
func (b *QuestionBank) Replace(questions []models.Question) error {
	if len(questions) == 0 {
		return validationError("Invalid format")
	}
	b.questions = cloneQuestions(questions)
	b.normalize()
	return nil
}

// Export serializes the full ordered list including answers.
func (b *QuestionBank) Export() (string, error) {
	data, err := json.MarshalIndent(b.questions, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize questions: %w", err)
	}
	return string(data), nil
}

// normalize re-assigns dense ids and puts the tiebreaker marker on the last entry.
func (b *QuestionBank) normalize() {
	for i := range b.questions {
		b.questions[i].ID = i
	}
	if n := len(b.questions); n > 0 && !b.questions[n-1].HasTiebreakerTag() {
		b.questions[n-1].Question = models.TiebreakerPrefix + b.questions[n-1].Question
	}
}

func cloneQuestions(questions []models.Question) []models.Question {
	out := make([]models.Question, len(questions))
	for i, q := range questions {
		q.Options = slices.Clone(q.Options)
		out[i] = q
	}
	return out
}
