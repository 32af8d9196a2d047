package models

import (
	"slices"

	"github.com/google/uuid"
)

// Phase is the engine state derived from the GameState flags.
type Phase string

const (
	PhaseNotStarted       Phase = "not_started"
	PhaseWheelPending     Phase = "wheel_pending"
	PhaseInProgress       Phase = "in_progress"
	PhaseTiebreakerActive Phase = "tiebreaker_active"
	PhaseFinished         Phase = "finished"
)

// QuestionResult is one attempt on a question.
type QuestionResult struct {
	Team    int  `json:"team"`
	Correct bool `json:"correct"`
}

// GameState is the mutable session record of the current round.
type GameState struct {
	RoundID              string                   `json:"roundId"`
	Scores               [MaxTeams]int            `json:"scores"`
	RemainingQuestions   int                      `json:"remainingQuestions"`
	AnsweredQuestions    []int                    `json:"answeredQuestions"`
	TimedOutQuestions    []int                    `json:"timedOutQuestions"`
	CurrentQuestionIndex *int                     `json:"currentQuestionIndex"`
	CurrentTeam          int                      `json:"currentTeam"`
	WheelSpun            bool                     `json:"wheelSpun"`
	GameStarted          bool                     `json:"gameStarted"`
	GameFinished         bool                     `json:"gameFinished"`
	TiebreakerActive     bool                     `json:"tiebreakerActive"`
	TiebreakerUsed       bool                     `json:"tiebreakerUsed"`
	QuestionResults      map[int][]QuestionResult `json:"questionResults"`
	Phase                Phase                    `json:"phase"`
}

func NewGameState(totalQuestions int) *GameState {
	s := &GameState{}
	s.Reset(totalQuestions)
	return s
}

// Reset restores the initial form of a round for a bank of totalQuestions entries.
func (s *GameState) Reset(totalQuestions int) {
	*s = GameState{
		RoundID:           uuid.New().String(),
		AnsweredQuestions: []int{},
		TimedOutQuestions: []int{},
		CurrentTeam:       1,
		QuestionResults:   make(map[int][]QuestionResult),
	}
	s.RecalculateRemaining(totalQuestions)
	s.Phase = s.CurrentPhase()
}

func (s *GameState) CurrentPhase() Phase {
	switch {
	case s.GameFinished:
		return PhaseFinished
	case s.TiebreakerActive:
		return PhaseTiebreakerActive
	case s.GameStarted:
		return PhaseInProgress
	case s.WheelSpun:
		return PhaseWheelPending
	default:
		return PhaseNotStarted
	}
}

// Score returns the score of team, or 0 for an out-of-range seat.
func (s *GameState) Score(team int) int {
	if team < 1 || team > MaxTeams {
		return 0
	}
	return s.Scores[team-1]
}

// SetScore stores max(0, score) for team and reports whether the seat exists.
func (s *GameState) SetScore(team, score int) bool {
	if team < 1 || team > MaxTeams {
		return false
	}
	s.Scores[team-1] = max(0, score)
	return true
}

// ZeroScoresAbove clears every seat beyond numberOfTeams.
func (s *GameState) ZeroScoresAbove(numberOfTeams int) {
	for team := numberOfTeams + 1; team <= MaxTeams; team++ {
		s.Scores[team-1] = 0
	}
}

func (s *GameState) IsAnswered(id int) bool {
	return slices.Contains(s.AnsweredQuestions, id)
}

func (s *GameState) IsTimedOut(id int) bool {
	return slices.Contains(s.TimedOutQuestions, id)
}

func (s *GameState) MarkAnswered(id int) {
	if !s.IsAnswered(id) {
		s.AnsweredQuestions = append(s.AnsweredQuestions, id)
	}
}

func (s *GameState) MarkTimedOut(id int) {
	if !s.IsTimedOut(id) {
		s.TimedOutQuestions = append(s.TimedOutQuestions, id)
	}
}

func (s *GameState) ClearTimedOut(id int) {
	s.TimedOutQuestions = slices.DeleteFunc(s.TimedOutQuestions, func(v int) bool { return v == id })
}

func (s *GameState) RecordResult(id int, result QuestionResult) {
	if s.QuestionResults == nil {
		s.QuestionResults = make(map[int][]QuestionResult)
	}
	s.QuestionResults[id] = append(s.QuestionResults[id], result)
}

// RecalculateRemaining derives the count of unanswered regular questions. The
// tiebreaker always sits at totalQuestions-1 and never counts.
func (s *GameState) RecalculateRemaining(totalQuestions int) {
	regular := max(0, totalQuestions-1)
	answered := 0
	for _, id := range s.AnsweredQuestions {
		if id < regular {
			answered++
		}
	}
	s.RemainingQuestions = max(0, regular-answered)
}

// RemapAfterDelete drops every reference to the deleted id and shifts larger ids down.
func (s *GameState) RemapAfterDelete(deleted int) {
	s.AnsweredQuestions = remapIDs(s.AnsweredQuestions, deleted)
	s.TimedOutQuestions = remapIDs(s.TimedOutQuestions, deleted)

	if len(s.QuestionResults) > 0 {
		results := make(map[int][]QuestionResult, len(s.QuestionResults))
		for id, r := range s.QuestionResults {
			switch {
			case id == deleted:
				continue
			case id > deleted:
				results[id-1] = r
			default:
				results[id] = r
			}
		}
		s.QuestionResults = results
	}

	if s.CurrentQuestionIndex != nil {
		switch idx := *s.CurrentQuestionIndex; {
		case idx == deleted:
			s.CurrentQuestionIndex = nil
		case idx > deleted:
			shifted := idx - 1
			s.CurrentQuestionIndex = &shifted
		}
	}
}

// RemapAfterInsert shifts every stored id at or above pos up by one.
func (s *GameState) RemapAfterInsert(pos int) {
	shift := func(id int) int {
		if id >= pos {
			return id + 1
		}
		return id
	}
	for i, id := range s.AnsweredQuestions {
		s.AnsweredQuestions[i] = shift(id)
	}
	for i, id := range s.TimedOutQuestions {
		s.TimedOutQuestions[i] = shift(id)
	}
	if len(s.QuestionResults) > 0 {
		results := make(map[int][]QuestionResult, len(s.QuestionResults))
		for id, r := range s.QuestionResults {
			results[shift(id)] = r
		}
		s.QuestionResults = results
	}
	if s.CurrentQuestionIndex != nil {
		idx := shift(*s.CurrentQuestionIndex)
		s.CurrentQuestionIndex = &idx
	}
}

func remapIDs(ids []int, deleted int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		switch {
		case id == deleted:
		case id > deleted:
			out = append(out, id-1)
		default:
			out = append(out, id)
		}
	}
	return out
}

// Clone returns a deep copy safe to hand out after the engine lock is released.
func (s *GameState) Clone() GameState {
	c := *s
	c.AnsweredQuestions = slices.Clone(s.AnsweredQuestions)
	c.TimedOutQuestions = slices.Clone(s.TimedOutQuestions)
	if c.AnsweredQuestions == nil {
		c.AnsweredQuestions = []int{}
	}
	if c.TimedOutQuestions == nil {
		c.TimedOutQuestions = []int{}
	}
	if s.CurrentQuestionIndex != nil {
		idx := *s.CurrentQuestionIndex
		c.CurrentQuestionIndex = &idx
	}
	c.QuestionResults = make(map[int][]QuestionResult, len(s.QuestionResults))
	for id, r := range s.QuestionResults {
		c.QuestionResults[id] = slices.Clone(r)
	}
	c.Phase = s.CurrentPhase()
	return c
}

// NextTeam returns the seat after current, wrapping to 1 after numberOfTeams.
func NextTeam(current, numberOfTeams int) int {
	numberOfTeams = max(1, numberOfTeams)
	next := current + 1
	if next > numberOfTeams {
		return 1
	}
	return next
}
