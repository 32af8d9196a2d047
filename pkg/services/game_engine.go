package services

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/backsoul/trivia/pkg/models"
	"github.com/rs/zerolog/log"
)

// Notifier nudges a display to re-pull state. Implementations must not block.
type Notifier interface {
	NotifyPlayer()
	NotifyAdmin()
}

type nopNotifier struct{}

func (nopNotifier) NotifyPlayer() {}
func (nopNotifier) NotifyAdmin()  {}

// Origin is the surface that issued a call. The opposite display gets nudged.
type Origin int

const (
	OriginAdmin Origin = iota
	OriginPlayer
)

func (o Origin) String() string {
	if o == OriginPlayer {
		return "player"
	}
	return "admin"
}

// ErrInternal is returned when answer or timeout processing fails unexpectedly.
var ErrInternal = errors.New("internal error")

type SpinResult struct {
	StartingTeam  int    `json:"startingTeam"`
	TeamName      string `json:"teamName"`
	NumberOfTeams int    `json:"numberOfTeams"`
}

type QuestionPrompt struct {
	Question     models.QuestionView `json:"question"`
	CurrentTeam  int                 `json:"currentTeam"`
	IsTiebreaker bool                `json:"isTiebreaker"`
}

type AnswerResult struct {
	IsCorrect     bool             `json:"isCorrect"`
	CorrectAnswer int              `json:"correctAnswer"`
	GameState     models.GameState `json:"gameState"`
	CurrentTeam   int              `json:"currentTeam"`
	GameEnded     bool             `json:"gameEnded"`
	Winner        *string          `json:"winner"`
	Scores        map[string]int   `json:"scores"`
}

type TimeoutResult struct {
	GameState models.GameState `json:"gameState"`
	GameEnded bool             `json:"gameEnded"`
	Winner    *string          `json:"winner"`
}

// QuestionChange describes the bank after an add.
type QuestionChange struct {
	ID    int `json:"id"`
	Total int `json:"total"`
}

type EngineOption func(*GameEngine)

// WithTeamPicker replaces the wheel's random source. pick(n) must return a team in 1..n.
func WithTeamPicker(pick func(n int) int) EngineOption {
	return func(e *GameEngine) { e.pickTeam = pick }
}

// GameEngine is the single game session. One mutex covers the bank, the settings and the
// state, and every snapshot it hands out is a copy.
type GameEngine struct {
	mu       sync.Mutex
	bank     *QuestionBank
	settings models.Settings
	state    *models.GameState
	notifier Notifier
	pickTeam func(n int) int
}

func NewGameEngine(bank *QuestionBank, settings models.Settings, notifier Notifier, opts ...EngineOption) *GameEngine {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	e := &GameEngine{
		bank:     bank,
		settings: settings,
		state:    models.NewGameState(bank.Count()),
		notifier: notifier,
		pickTeam: func(n int) int { return rand.IntN(n) + 1 },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *GameEngine) notifyOpposite(origin Origin) {
	if origin == OriginPlayer {
		e.notifier.NotifyAdmin()
		return
	}
	e.notifier.NotifyPlayer()
}

// GameState obtiene una copia del estado actual
func (e *GameEngine) GameState() models.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

func (e *GameEngine) Settings() models.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// UpdateSettings applies a whitelisted patch. Nothing changes if any field is invalid.
func (e *GameEngine) UpdateSettings(patch models.SettingsPatch) (models.Settings, error) {
	e.mu.Lock()
	next, err := ApplySettingsPatch(e.settings, patch)
	if err != nil {
		e.mu.Unlock()
		return models.Settings{}, err
	}
	e.settings = next
	if e.state.CurrentTeam > next.NumberOfTeams {
		e.state.CurrentTeam = 1
	}
	e.state.ZeroScoresAbove(next.NumberOfTeams)
	if !e.state.GameStarted {
		e.state.RecalculateRemaining(e.bank.Count())
	}
	e.mu.Unlock()

	log.Info().Int("teams", next.NumberOfTeams).Int("timer", next.TimerDuration).Msg("⚙️ settings updated")
	e.notifier.NotifyPlayer()
	return next, nil
}

// SpinWheel picks a random starting team. Re-spins are allowed until the game starts.
func (e *GameEngine) SpinWheel() (SpinResult, error) {
	e.mu.Lock()
	if e.state.GameStarted {
		e.mu.Unlock()
		return SpinResult{}, stateError("Cannot spin wheel after game started")
	}
	res := e.setStartingTeam(e.pickTeam(e.settings.NumberOfTeams))
	e.mu.Unlock()

	log.Info().Int("team", res.StartingTeam).Msg("🎡 wheel spun")
	e.notifier.NotifyAdmin()
	return res, nil
}

// ForceSpinWheel lets the operator choose the starting team.
func (e *GameEngine) ForceSpinWheel(team int) (SpinResult, error) {
	e.mu.Lock()
	if e.state.GameStarted {
		e.mu.Unlock()
		return SpinResult{}, stateError("Cannot spin wheel after game started")
	}
	if !e.settings.HasTeam(team) {
		n := e.settings.NumberOfTeams
		e.mu.Unlock()
		return SpinResult{}, validationError("Invalid team (1-%d)", n)
	}
	res := e.setStartingTeam(team)
	e.mu.Unlock()

	log.Info().Int("team", team).Msg("🎡 wheel forced")
	e.notifier.NotifyPlayer()
	return res, nil
}

func (e *GameEngine) setStartingTeam(team int) SpinResult {
	e.state.CurrentTeam = team
	e.state.WheelSpun = true
	name, _ := e.settings.TeamName(team)
	return SpinResult{StartingTeam: team, TeamName: name, NumberOfTeams: e.settings.NumberOfTeams}
}

func (e *GameEngine) StartGame(origin Origin) (models.GameState, error) {
	e.mu.Lock()
	if !e.state.WheelSpun {
		e.mu.Unlock()
		return models.GameState{}, stateError("Spin wheel first")
	}
	if e.state.GameFinished {
		e.mu.Unlock()
		return models.GameState{}, stateError("Game is already finished")
	}
	e.state.GameStarted = true
	// a bank holding only the tiebreaker has nothing left to play
	e.applyEndOfRound()
	snapshot := e.state.Clone()
	e.mu.Unlock()

	log.Info().Stringer("origin", origin).Int("team", snapshot.CurrentTeam).Msg("🚀 game started")
	e.notifyOpposite(origin)
	return snapshot, nil
}

// checkPlayable applies the gating shared by GetQuestion, CheckAnswer and HandleTimeout.
func (e *GameEngine) checkPlayable(index int) (bool, error) {
	if !e.state.GameStarted {
		return false, stateError("Game not started")
	}
	if e.state.GameFinished {
		return false, stateError("Game is already finished")
	}
	if !e.bank.Exists(index) {
		return false, validationError("Invalid question")
	}
	if e.state.IsAnswered(index) {
		return false, stateError("Question already answered")
	}
	tiebreaker := e.bank.IsTiebreaker(index)
	if tiebreaker && !e.state.TiebreakerActive {
		return false, stateError("Tiebreaker not yet available")
	}
	if !tiebreaker && e.state.TiebreakerActive {
		return false, stateError("Tiebreaker is active")
	}
	return tiebreaker, nil
}

// GetQuestion opens a question for the acting team, answer withheld.
func (e *GameEngine) GetQuestion(index int) (QuestionPrompt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tiebreaker, err := e.checkPlayable(index)
	if err != nil {
		return QuestionPrompt{}, err
	}
	q, _ := e.bank.Get(index)
	e.state.CurrentQuestionIndex = &index
	return QuestionPrompt{
		Question:     q.Public(),
		CurrentTeam:  e.state.CurrentTeam,
		IsTiebreaker: tiebreaker,
	}, nil
}

func (e *GameEngine) CheckAnswer(index, selectedOption int) (res AnswerResult, err error) {
	defer recoverInternal("check answer", &err)

	res, err = e.checkAnswer(index, selectedOption)
	if err != nil {
		return AnswerResult{}, err
	}
	e.notifier.NotifyAdmin()
	return res, nil
}

func (e *GameEngine) checkAnswer(index, selectedOption int) (AnswerResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tiebreaker, err := e.checkPlayable(index)
	if err != nil {
		return AnswerResult{}, err
	}

	q, _ := e.bank.Get(index)
	correct := selectedOption == q.Correct
	team := e.state.CurrentTeam
	e.state.RecordResult(index, models.QuestionResult{Team: team, Correct: correct})

	var (
		ended  bool
		winner *string
	)
	switch {
	case tiebreaker && correct:
		e.state.MarkAnswered(index)
		e.state.ClearTimedOut(index)
		e.state.GameFinished = true
		e.state.TiebreakerActive = false
		e.state.TiebreakerUsed = true
		w := teamID(team)
		ended, winner = true, &w
		log.Info().Int("team", team).Msg("🏆 tiebreaker won")
	case tiebreaker:
		// stays open for the next team
		e.state.CurrentTeam = models.NextTeam(team, e.settings.NumberOfTeams)
	default:
		delta := e.settings.PointsWrong
		if correct {
			delta = e.settings.PointsCorrect
		}
		e.state.SetScore(team, e.state.Score(team)+delta)
		e.state.MarkAnswered(index)
		e.state.ClearTimedOut(index)
		e.state.RecalculateRemaining(e.bank.Count())
		e.state.CurrentTeam = models.NextTeam(team, e.settings.NumberOfTeams)
		ended, winner = e.applyEndOfRound()
	}

	log.Debug().Int("question", index).Int("team", team).Bool("correct", correct).Msg("answer checked")

	return AnswerResult{
		IsCorrect:     correct,
		CorrectAnswer: q.Correct,
		GameState:     e.state.Clone(),
		CurrentTeam:   e.state.CurrentTeam,
		GameEnded:     ended,
		Winner:        winner,
		Scores:        e.scores(),
	}, nil
}

// HandleTimeout retires a question nobody answered in time. It never scores and never
// finishes the game through the tiebreaker.
func (e *GameEngine) HandleTimeout(index int) (res TimeoutResult, err error) {
	defer recoverInternal("handle timeout", &err)

	res, err = e.handleTimeout(index)
	if err != nil {
		return TimeoutResult{}, err
	}
	e.notifier.NotifyAdmin()
	return res, nil
}

func (e *GameEngine) handleTimeout(index int) (TimeoutResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tiebreaker, err := e.checkPlayable(index)
	if err != nil {
		return TimeoutResult{}, err
	}

	team := e.state.CurrentTeam
	e.state.CurrentTeam = models.NextTeam(team, e.settings.NumberOfTeams)

	var (
		ended  bool
		winner *string
	)
	if !tiebreaker {
		e.state.MarkAnswered(index)
		e.state.MarkTimedOut(index)
		e.state.RecalculateRemaining(e.bank.Count())
		ended, winner = e.applyEndOfRound()
	}

	log.Debug().Int("question", index).Int("team", team).Msg("⏰ question timed out")

	return TimeoutResult{GameState: e.state.Clone(), GameEnded: ended, Winner: winner}, nil
}

// applyEndOfRound finishes the round or escalates to the tiebreaker once every regular
// question is retired.
func (e *GameEngine) applyEndOfRound() (bool, *string) {
	if e.state.RemainingQuestions > 0 || e.state.TiebreakerActive || e.state.GameFinished {
		return false, nil
	}
	if e.checkTiebreakerCondition() {
		e.state.TiebreakerActive = true
		e.state.TiebreakerUsed = true
		log.Info().Ints("scores", e.state.Scores[:e.settings.NumberOfTeams]).Msg("⚖️ tie detected, tiebreaker active")
		return false, nil
	}
	e.state.GameFinished = true
	winner := e.determineWinner()
	log.Info().Str("winner", winner).Msg("🏁 game finished")
	return true, &winner
}

// checkTiebreakerCondition reports whether more than one active team shares the top score
// with no regular questions left.
func (e *GameEngine) checkTiebreakerCondition() bool {
	if e.state.RemainingQuestions > 0 || e.settings.NumberOfTeams < models.MinTeams {
		return false
	}
	scores := e.state.Scores[:e.settings.NumberOfTeams]
	top := scores[0]
	for _, s := range scores[1:] {
		top = max(top, s)
	}
	holders := 0
	for _, s := range scores {
		if s == top {
			holders++
		}
	}
	return holders > 1
}

// determineWinner returns TEAM{n} for a single leader or TIE when the top two are level.
func (e *GameEngine) determineWinner() string {
	n := e.settings.NumberOfTeams
	teams := make([]int, n)
	for i := range teams {
		teams[i] = i + 1
	}
	sort.SliceStable(teams, func(i, j int) bool {
		return e.state.Score(teams[i]) > e.state.Score(teams[j])
	})
	if n > 1 && e.state.Score(teams[0]) == e.state.Score(teams[1]) {
		return "TIE"
	}
	return teamID(teams[0])
}

func (e *GameEngine) scores() map[string]int {
	out := make(map[string]int, e.settings.NumberOfTeams)
	for team := 1; team <= e.settings.NumberOfTeams; team++ {
		out[fmt.Sprintf("team%d", team)] = e.state.Score(team)
	}
	return out
}

func teamID(team int) string {
	return fmt.Sprintf("TEAM%d", team)
}

// SwitchTeam passes the turn unconditionally.
func (e *GameEngine) SwitchTeam() models.GameState {
	e.mu.Lock()
	e.state.CurrentTeam = models.NextTeam(e.state.CurrentTeam, e.settings.NumberOfTeams)
	snapshot := e.state.Clone()
	e.mu.Unlock()

	e.notifier.NotifyAdmin()
	return snapshot
}

// Reset starts a new round. A reset from the player display refreshes both displays.
func (e *GameEngine) Reset(origin Origin) models.GameState {
	snapshot := e.reset()
	log.Info().Stringer("origin", origin).Str("round", snapshot.RoundID).Msg("🔄 game reset")

	if origin == OriginPlayer {
		e.notifier.NotifyPlayer()
		e.notifier.NotifyAdmin()
	} else {
		e.notifier.NotifyPlayer()
	}
	return snapshot
}

// RestartGame is the player's "play again": a reset that only refreshes the admin.
func (e *GameEngine) RestartGame() models.GameState {
	snapshot := e.reset()
	log.Info().Str("round", snapshot.RoundID).Msg("🔄 game restarted")
	e.notifier.NotifyAdmin()
	return snapshot
}

func (e *GameEngine) reset() models.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Reset(e.bank.Count())
	return e.state.Clone()
}

// ManualSetScore overrides a team's score. It never resolves a pending tiebreaker.
func (e *GameEngine) ManualSetScore(team, score int) (models.GameState, error) {
	e.mu.Lock()
	if e.state.GameFinished {
		e.mu.Unlock()
		return models.GameState{}, stateError("Game is already finished")
	}
	if !e.settings.HasTeam(team) {
		n := e.settings.NumberOfTeams
		e.mu.Unlock()
		return models.GameState{}, validationError("Invalid team (1-%d)", n)
	}
	e.state.SetScore(team, score)
	snapshot := e.state.Clone()
	e.mu.Unlock()

	log.Info().Int("team", team).Int("score", snapshot.Score(team)).Msg("✏️ score overridden")
	e.notifier.NotifyPlayer()
	return snapshot, nil
}

// ListQuestions obtiene todas las preguntas con sus respuestas
func (e *GameEngine) ListQuestions() []models.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bank.All()
}

func (e *GameEngine) AddQuestion(text string, options []string, correct int) (QuestionChange, error) {
	e.mu.Lock()
	id, err := e.bank.Add(text, options, correct)
	if err != nil {
		e.mu.Unlock()
		return QuestionChange{}, err
	}
	e.state.RemapAfterInsert(id)
	e.state.RecalculateRemaining(e.bank.Count())
	change := QuestionChange{ID: id, Total: e.bank.Count()}
	e.mu.Unlock()

	log.Info().Int("id", id).Int("total", change.Total).Msg("➕ question added")
	e.notifier.NotifyPlayer()
	return change, nil
}

// EditQuestion replaces a question. Answered questions are frozen while a game runs.
func (e *GameEngine) EditQuestion(id int, text string, options []string, correct int) error {
	e.mu.Lock()
	if !e.bank.Exists(id) {
		e.mu.Unlock()
		return notFoundError("Invalid question ID")
	}
	if _, err := newQuestion(text, options, correct); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.state.GameStarted && e.state.IsAnswered(id) {
		e.mu.Unlock()
		return stateError("Cannot edit a question that was already answered")
	}
	err := e.bank.Edit(id, text, options, correct)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	log.Info().Int("id", id).Msg("📝 question edited")
	e.notifier.NotifyPlayer()
	return nil
}

// DeleteQuestion removes a question. While a game runs only answered questions may go.
func (e *GameEngine) DeleteQuestion(id int) (int, error) {
	e.mu.Lock()
	if err := e.bank.CheckDeletable(id); err != nil {
		e.mu.Unlock()
		return 0, err
	}
	if e.state.GameStarted && !e.state.IsAnswered(id) {
		e.mu.Unlock()
		return 0, stateError("Cannot delete an unanswered question during a game")
	}
	if err := e.bank.Delete(id); err != nil {
		e.mu.Unlock()
		return 0, err
	}
	e.state.RemapAfterDelete(id)
	e.state.RecalculateRemaining(e.bank.Count())
	total := e.bank.Count()
	e.mu.Unlock()

	log.Info().Int("id", id).Int("total", total).Msg("🗑️ question deleted")
	e.notifier.NotifyPlayer()
	return total, nil
}

func (e *GameEngine) ExportQuestions() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bank.Export()
}

// ImportQuestions replaces the whole bank. A single bad entry rejects the batch.
func (e *GameEngine) ImportQuestions(jsonText string) (int, error) {
	questions, err := ParseImport(jsonText)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	if err := e.bank.Replace(questions); err != nil {
		e.mu.Unlock()
		return 0, err
	}
	if !e.state.GameStarted {
		e.state.RecalculateRemaining(e.bank.Count())
	}
	total := e.bank.Count()
	e.mu.Unlock()

	log.Info().Int("total", total).Msg("📥 questions imported")
	e.notifier.NotifyPlayer()
	return total, nil
}

func recoverInternal(op string, err *error) {
	if r := recover(); r != nil {
		log.Error().Str("op", op).Interface("panic", r).Msg("❌ recovered from internal failure")
		*err = fmt.Errorf("%s: %w", op, ErrInternal)
	}
}
