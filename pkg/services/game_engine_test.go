package services

import (
	"sync"
	"testing"

	"github.com/backsoul/trivia/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct {
	mu     sync.Mutex
	player int
	admin  int
	panics bool
}

func (n *countingNotifier) NotifyPlayer() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.player++
}

func (n *countingNotifier) NotifyAdmin() {
	n.mu.Lock()
	n.admin++
	n.mu.Unlock()
	if n.panics {
		panic("display bridge exploded")
	}
}

func (n *countingNotifier) counts() (player, admin int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.player, n.admin
}

func (n *countingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.player, n.admin = 0, 0
}

const (
	right   = 0 // answer index of every regular sample question
	wrong   = 2
	tbRight = 1
)

func newTestEngine(t *testing.T, regular int, startingTeam int) (*GameEngine, *countingNotifier) {
	t.Helper()
	n := &countingNotifier{}
	e := NewGameEngine(
		NewQuestionBank(sampleQuestions(regular)),
		models.DefaultSettings(),
		n,
		WithTeamPicker(func(int) int { return startingTeam }),
	)
	return e, n
}

func startedEngine(t *testing.T, regular int) (*GameEngine, *countingNotifier) {
	t.Helper()
	e, n := newTestEngine(t, regular, 1)
	_, err := e.SpinWheel()
	require.NoError(t, err)
	_, err = e.StartGame(OriginPlayer)
	require.NoError(t, err)
	n.reset()
	return e, n
}

func TestScenarioNormalFinish(t *testing.T) {
	e, _ := newTestEngine(t, 3, 1)

	spin, err := e.SpinWheel()
	require.NoError(t, err)
	assert.Equal(t, SpinResult{StartingTeam: 1, TeamName: "Team 1", NumberOfTeams: 2}, spin)

	_, err = e.StartGame(OriginPlayer)
	require.NoError(t, err)

	res, err := e.CheckAnswer(0, right)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 2, res.Scores["team1"])
	assert.Equal(t, 2, res.CurrentTeam)

	res, err = e.CheckAnswer(1, wrong)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, right, res.CorrectAnswer)
	assert.Equal(t, 0, res.Scores["team2"])
	assert.Equal(t, 1, res.CurrentTeam)

	res, err = e.CheckAnswer(2, right)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"team1": 4, "team2": 0}, res.Scores)
	assert.Equal(t, 2, res.CurrentTeam)
	assert.Equal(t, 0, res.GameState.RemainingQuestions)
	assert.True(t, res.GameEnded)
	assert.True(t, res.GameState.GameFinished)
	require.NotNil(t, res.Winner)
	assert.Equal(t, "TEAM1", *res.Winner)
	assert.Equal(t, models.PhaseFinished, res.GameState.Phase)
}

func TestScenarioTiebreaker(t *testing.T) {
	e, _ := startedEngine(t, 2)

	_, err := e.CheckAnswer(0, right)
	require.NoError(t, err)
	res, err := e.CheckAnswer(1, right)
	require.NoError(t, err)

	assert.False(t, res.GameEnded)
	assert.True(t, res.GameState.TiebreakerActive)
	assert.True(t, res.GameState.TiebreakerUsed)
	assert.False(t, res.GameState.GameFinished)
	assert.Equal(t, models.PhaseTiebreakerActive, res.GameState.Phase)

	_, err = e.GetQuestion(0)
	assert.ErrorIs(t, err, ErrState, "answered question")

	prompt, err := e.GetQuestion(2)
	require.NoError(t, err)
	assert.True(t, prompt.IsTiebreaker)
	assert.Equal(t, 1, prompt.CurrentTeam)

	res, err = e.CheckAnswer(2, tbRight)
	require.NoError(t, err)
	assert.True(t, res.GameEnded)
	require.NotNil(t, res.Winner)
	assert.Equal(t, "TEAM1", *res.Winner)
	assert.Equal(t, map[string]int{"team1": 2, "team2": 2}, res.Scores, "tiebreaker never scores")
	assert.Equal(t, 1, res.CurrentTeam, "turn does not advance after the winning answer")
	assert.False(t, res.GameState.TiebreakerActive)
	assert.Contains(t, res.GameState.AnsweredQuestions, 2)
}

func TestTiebreakerStaysOpenAfterMissAndTimeout(t *testing.T) {
	e, _ := startedEngine(t, 2)
	_, err := e.CheckAnswer(0, right)
	require.NoError(t, err)
	_, err = e.CheckAnswer(1, right)
	require.NoError(t, err)

	res, err := e.CheckAnswer(2, wrong)
	require.NoError(t, err)
	assert.False(t, res.GameEnded)
	assert.Equal(t, 2, res.CurrentTeam)
	assert.True(t, res.GameState.TiebreakerActive)
	assert.NotContains(t, res.GameState.AnsweredQuestions, 2)
	assert.Equal(t, []models.QuestionResult{{Team: 1, Correct: false}}, res.GameState.QuestionResults[2])

	timeout, err := e.HandleTimeout(2)
	require.NoError(t, err)
	assert.False(t, timeout.GameEnded)
	assert.Nil(t, timeout.Winner)
	assert.Equal(t, 1, timeout.GameState.CurrentTeam)
	assert.NotContains(t, timeout.GameState.TimedOutQuestions, 2)

	res, err = e.CheckAnswer(2, wrong)
	require.NoError(t, err)
	assert.Equal(t, 2, res.CurrentTeam)

	res, err = e.CheckAnswer(2, tbRight)
	require.NoError(t, err)
	require.NotNil(t, res.Winner)
	assert.Equal(t, "TEAM2", *res.Winner)
	assert.Len(t, res.GameState.QuestionResults[2], 3)
}

func TestScenarioTimeout(t *testing.T) {
	e, _ := startedEngine(t, 3)
	_, err := e.CheckAnswer(0, right)
	require.NoError(t, err)
	before := e.GameState()

	res, err := e.HandleTimeout(1)
	require.NoError(t, err)

	assert.Equal(t, before.Scores, res.GameState.Scores)
	assert.Equal(t, 1, res.GameState.CurrentTeam)
	assert.Equal(t, before.RemainingQuestions-1, res.GameState.RemainingQuestions)
	assert.Contains(t, res.GameState.AnsweredQuestions, 1)
	assert.Contains(t, res.GameState.TimedOutQuestions, 1)
	assert.NotContains(t, res.GameState.QuestionResults, 1)

	_, err = e.HandleTimeout(1)
	assert.ErrorIs(t, err, ErrState)
}

func TestTimeoutOnLastQuestionAppliesEndOfRound(t *testing.T) {
	e, _ := startedEngine(t, 2)
	_, err := e.CheckAnswer(0, right)
	require.NoError(t, err)

	res, err := e.HandleTimeout(1)
	require.NoError(t, err)

	assert.True(t, res.GameEnded)
	require.NotNil(t, res.Winner)
	assert.Equal(t, "TEAM1", *res.Winner)
}

func TestScenarioShrinkTeams(t *testing.T) {
	e, _ := newTestEngine(t, 3, 1)
	_, err := e.UpdateSettings(models.SettingsPatch{NumberOfTeams: models.NewFlexInt(4)})
	require.NoError(t, err)
	_, err = e.ForceSpinWheel(4)
	require.NoError(t, err)
	_, err = e.ManualSetScore(3, 5)
	require.NoError(t, err)
	_, err = e.ManualSetScore(4, 7)
	require.NoError(t, err)
	_, err = e.ManualSetScore(1, 1)
	require.NoError(t, err)

	settings, err := e.UpdateSettings(models.SettingsPatch{NumberOfTeams: models.NewFlexInt(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, settings.NumberOfTeams)

	state := e.GameState()
	assert.Equal(t, 1, state.CurrentTeam)
	assert.Equal(t, [models.MaxTeams]int{1, 0, 0, 0}, state.Scores)
}

func TestUpdateSettingsRejectsWholePatch(t *testing.T) {
	e, n := newTestEngine(t, 2, 1)

	_, err := e.UpdateSettings(models.SettingsPatch{
		TimerDuration: ptr(99),
		NumberOfTeams: models.NewFlexInt(7),
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, models.DefaultSettings(), e.Settings())

	player, _ := n.counts()
	assert.Zero(t, player)
}

func TestSpinAndStartRules(t *testing.T) {
	e, _ := newTestEngine(t, 2, 2)

	_, err := e.StartGame(OriginAdmin)
	assert.ErrorIs(t, err, ErrState)

	_, err = e.ForceSpinWheel(3)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.ForceSpinWheel(1)
	require.NoError(t, err)
	spin, err := e.SpinWheel()
	require.NoError(t, err, "re-spin before start is allowed")
	assert.Equal(t, 2, spin.StartingTeam)

	_, err = e.StartGame(OriginAdmin)
	require.NoError(t, err)

	_, err = e.SpinWheel()
	assert.ErrorIs(t, err, ErrState)
	_, err = e.ForceSpinWheel(1)
	assert.ErrorIs(t, err, ErrState)
}

func TestQuestionGating(t *testing.T) {
	e, _ := newTestEngine(t, 2, 1)

	_, err := e.GetQuestion(0)
	assert.ErrorIs(t, err, ErrState, "not started")
	_, err = e.CheckAnswer(0, right)
	assert.ErrorIs(t, err, ErrState, "no scoring before start")

	_, err = e.SpinWheel()
	require.NoError(t, err)
	_, err = e.StartGame(OriginPlayer)
	require.NoError(t, err)

	_, err = e.GetQuestion(5)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.GetQuestion(2)
	assert.ErrorIs(t, err, ErrState, "tiebreaker not yet available")
	_, err = e.CheckAnswer(2, tbRight)
	assert.ErrorIs(t, err, ErrState)
	_, err = e.HandleTimeout(2)
	assert.ErrorIs(t, err, ErrState)

	prompt, err := e.GetQuestion(1)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionView{ID: 1, Question: "Question 1?", Options: []string{"right", "wrong a", "wrong b", "wrong c"}}, prompt.Question)
	state := e.GameState()
	require.NotNil(t, state.CurrentQuestionIndex)
	assert.Equal(t, 1, *state.CurrentQuestionIndex)

	_, err = e.CheckAnswer(1, right)
	require.NoError(t, err)
	_, err = e.CheckAnswer(1, right)
	assert.ErrorIs(t, err, ErrState, "already answered")
}

func TestNoScoringAfterFinish(t *testing.T) {
	e, _ := startedEngine(t, 1)
	res, err := e.CheckAnswer(0, right)
	require.NoError(t, err)
	require.True(t, res.GameEnded)

	_, err = e.CheckAnswer(1, tbRight)
	assert.ErrorIs(t, err, ErrState)
	_, err = e.ManualSetScore(1, 10)
	assert.ErrorIs(t, err, ErrState)
	state := e.GameState()
	assert.Equal(t, 2, state.Score(1))
}

func TestStartWithOnlyTiebreaker(t *testing.T) {
	e, _ := newTestEngine(t, 0, 1)
	_, err := e.SpinWheel()
	require.NoError(t, err)

	state, err := e.StartGame(OriginPlayer)
	require.NoError(t, err)

	assert.True(t, state.TiebreakerActive)
	_, err = e.GetQuestion(0)
	assert.NoError(t, err)
}

func TestScoresNeverNegative(t *testing.T) {
	e, _ := startedEngine(t, 4)
	_, err := e.UpdateSettings(models.SettingsPatch{PointsWrong: ptr(-3)})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		res, err := e.CheckAnswer(i, wrong)
		require.NoError(t, err)
		for team, score := range res.Scores {
			assert.GreaterOrEqual(t, score, 0, team)
		}
	}
}

func TestManualScoreDuringTiebreakerDoesNotResolve(t *testing.T) {
	e, _ := startedEngine(t, 2)
	_, err := e.CheckAnswer(0, right)
	require.NoError(t, err)
	_, err = e.CheckAnswer(1, right)
	require.NoError(t, err)

	state, err := e.ManualSetScore(2, 10)
	require.NoError(t, err)
	assert.True(t, state.TiebreakerActive)
	assert.False(t, state.GameFinished)

	res, err := e.CheckAnswer(2, tbRight)
	require.NoError(t, err)
	assert.Equal(t, "TEAM1", *res.Winner)
}

func TestManualScoreValidation(t *testing.T) {
	e, _ := newTestEngine(t, 2, 1)

	_, err := e.ManualSetScore(3, 4)
	assert.ErrorIs(t, err, ErrValidation)

	state, err := e.ManualSetScore(2, -4)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Score(2))
}

func TestDetermineWinnerReportsTie(t *testing.T) {
	e, _ := newTestEngine(t, 1, 1)
	e.state.SetScore(1, 3)
	e.state.SetScore(2, 3)
	assert.Equal(t, "TIE", e.determineWinner())

	e.state.SetScore(2, 4)
	assert.Equal(t, "TEAM2", e.determineWinner())
}

func TestCheckTiebreakerCondition(t *testing.T) {
	e, _ := newTestEngine(t, 1, 1)
	_, err := e.UpdateSettings(models.SettingsPatch{NumberOfTeams: models.NewFlexInt(3)})
	require.NoError(t, err)

	e.state.RemainingQuestions = 0
	e.state.Scores = [models.MaxTeams]int{4, 1, 4, 9}
	assert.True(t, e.checkTiebreakerCondition(), "team 4 is inactive")

	e.state.Scores = [models.MaxTeams]int{4, 1, 5, 0}
	assert.False(t, e.checkTiebreakerCondition())

	e.state.Scores = [models.MaxTeams]int{4, 4, 0, 0}
	e.state.RemainingQuestions = 1
	assert.False(t, e.checkTiebreakerCondition())
}

func TestQuestionEditsDuringGame(t *testing.T) {
	e, _ := startedEngine(t, 3)
	_, err := e.CheckAnswer(0, right)
	require.NoError(t, err)

	opts := []string{"a", "b", "c", "d"}

	assert.ErrorIs(t, e.EditQuestion(0, "Changed?", opts, 1), ErrState)
	assert.ErrorIs(t, e.EditQuestion(9, "Changed?", opts, 1), ErrNotFound)
	assert.ErrorIs(t, e.EditQuestion(1, "", opts, 1), ErrValidation)
	require.NoError(t, e.EditQuestion(1, "Changed?", opts, 1))

	_, err = e.DeleteQuestion(1)
	assert.ErrorIs(t, err, ErrState, "unanswered questions are locked mid-game")
	_, err = e.DeleteQuestion(3)
	assert.ErrorIs(t, err, ErrValidation, "tiebreaker")
	_, err = e.DeleteQuestion(4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemapsState(t *testing.T) {
	e, n := startedEngine(t, 4)
	_, err := e.CheckAnswer(1, right)
	require.NoError(t, err)
	_, err = e.HandleTimeout(2)
	require.NoError(t, err)
	_, err = e.CheckAnswer(3, wrong)
	require.NoError(t, err)
	n.reset()

	total, err := e.DeleteQuestion(1)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	state := e.GameState()
	assert.Equal(t, []int{1, 2}, state.AnsweredQuestions)
	assert.Equal(t, []int{1}, state.TimedOutQuestions)
	assert.NotContains(t, state.QuestionResults, 3)
	assert.Equal(t, []models.QuestionResult{{Team: 1, Correct: false}}, state.QuestionResults[2])
	assert.Equal(t, 1, state.RemainingQuestions)

	player, _ := n.counts()
	assert.Equal(t, 1, player)
}

func TestAddDuringGameKeepsTiebreakerReferences(t *testing.T) {
	e, _ := startedEngine(t, 1)
	_, err := e.ForceSpinWheel(1)
	require.ErrorIs(t, err, ErrState)

	change, err := e.AddQuestion("Another?", []string{"a", "b", "c", "d"}, 0)
	require.NoError(t, err)
	assert.Equal(t, QuestionChange{ID: 1, Total: 3}, change)
	assert.Equal(t, 2, e.GameState().RemainingQuestions)

	_, err = e.GetQuestion(2)
	assert.ErrorIs(t, err, ErrState, "the tiebreaker moved to the end")
	_, err = e.GetQuestion(1)
	assert.NoError(t, err)
}

func TestImportQuestions(t *testing.T) {
	e, n := newTestEngine(t, 3, 1)
	before := e.ListQuestions()

	_, err := e.ImportQuestions(`[
		{"question": "One?", "options": ["a","b","c","d"], "correct": 0},
		{"question": "Two?", "options": ["a","b","c","d"]}
	]`)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, before, e.ListQuestions(), "bank untouched")

	total, err := e.ImportQuestions(`[
		{"question": "One?", "options": ["a","b","c","d"], "correct": 0},
		{"question": "Two?", "options": ["a","b","c","d"], "correct": 3}
	]`)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, e.GameState().RemainingQuestions)

	exported, err := e.ExportQuestions()
	require.NoError(t, err)
	assert.Contains(t, exported, models.TiebreakerPrefix+"Two?")

	player, _ := n.counts()
	assert.Equal(t, 1, player)
}

func TestNotificationsTargetOppositeDisplay(t *testing.T) {
	e, n := newTestEngine(t, 2, 1)

	_, err := e.SpinWheel()
	require.NoError(t, err)
	player, admin := n.counts()
	assert.Equal(t, 0, player)
	assert.Equal(t, 1, admin)

	n.reset()
	_, err = e.StartGame(OriginAdmin)
	require.NoError(t, err)
	player, admin = n.counts()
	assert.Equal(t, 1, player)
	assert.Equal(t, 0, admin)

	n.reset()
	e.Reset(OriginPlayer)
	player, admin = n.counts()
	assert.Equal(t, 1, player)
	assert.Equal(t, 1, admin)

	n.reset()
	e.Reset(OriginAdmin)
	player, admin = n.counts()
	assert.Equal(t, 1, player)
	assert.Equal(t, 0, admin)

	n.reset()
	e.RestartGame()
	player, admin = n.counts()
	assert.Equal(t, 0, player)
	assert.Equal(t, 1, admin)

	n.reset()
	_, err = e.StartGame(OriginPlayer)
	require.ErrorIs(t, err, ErrState)
	player, admin = n.counts()
	assert.Zero(t, player+admin, "failed calls notify nobody")
}

func TestResetKeepsBankAndSettings(t *testing.T) {
	e, _ := startedEngine(t, 3)
	_, err := e.UpdateSettings(models.SettingsPatch{PointsCorrect: ptr(5)})
	require.NoError(t, err)
	_, err = e.CheckAnswer(0, right)
	require.NoError(t, err)
	round := e.GameState().RoundID

	state := e.Reset(OriginAdmin)

	assert.NotEqual(t, round, state.RoundID)
	assert.False(t, state.GameStarted)
	assert.Equal(t, 3, state.RemainingQuestions)
	assert.Equal(t, [models.MaxTeams]int{}, state.Scores)
	assert.Equal(t, 5, e.Settings().PointsCorrect)
	assert.Len(t, e.ListQuestions(), 4)
}

func TestCheckAnswerRecoversFromPanics(t *testing.T) {
	e, n := startedEngine(t, 3)
	n.panics = true

	_, err := e.CheckAnswer(0, right)
	require.ErrorIs(t, err, ErrInternal)

	state := e.GameState()
	assert.Contains(t, state.AnsweredQuestions, 0, "committed work survives")
	assert.Equal(t, 2, state.Score(1))

	_, err = e.HandleTimeout(1)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestConcurrentCallsAreSerialized(t *testing.T) {
	e, _ := startedEngine(t, 2)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.SwitchTeam()
		}()
		go func() {
			defer wg.Done()
			state := e.GameState()
			assert.Contains(t, []int{1, 2}, state.CurrentTeam)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, e.GameState().CurrentTeam, "an even number of switches lands on the start")
}
