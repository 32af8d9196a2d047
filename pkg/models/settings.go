package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	MinTeams = 2
	MaxTeams = 4
)

// Settings is the operator-tunable configuration of a round.
type Settings struct {
	TeamNames     [MaxTeams]string `json:"teamNames"`
	TimerDuration int              `json:"timerDuration"`
	PointsCorrect int              `json:"pointsCorrect"`
	PointsWrong   int              `json:"pointsWrong"`
	EnableSound   bool             `json:"enableSound"`
	EnableMusic   bool             `json:"enableMusic"`
	NumberOfTeams int              `json:"numberOfTeams"`
}

func DefaultSettings() Settings {
	return Settings{
		TeamNames:     [MaxTeams]string{"Team 1", "Team 2", "Team 3", "Team 4"},
		TimerDuration: 30,
		PointsCorrect: 2,
		PointsWrong:   0,
		EnableSound:   true,
		EnableMusic:   true,
		NumberOfTeams: 2,
	}
}

// HasTeam reports whether team is an active seat for the configured team count.
func (s Settings) HasTeam(team int) bool {
	return team >= 1 && team <= s.NumberOfTeams && team <= MaxTeams
}

// TeamName returns the display name of an active team.
func (s Settings) TeamName(team int) (string, bool) {
	if !s.HasTeam(team) {
		return "", false
	}
	return s.TeamNames[team-1], true
}

// SettingsPatch is the whitelist of fields an update may touch. Nil means "leave as is";
// JSON keys outside this struct are ignored by the decoder.
type SettingsPatch struct {
	TeamNames     map[int]string `json:"teamNames,omitempty"`
	TimerDuration *int           `json:"timerDuration,omitempty"`
	PointsCorrect *int           `json:"pointsCorrect,omitempty"`
	PointsWrong   *int           `json:"pointsWrong,omitempty"`
	EnableSound   *bool          `json:"enableSound,omitempty"`
	EnableMusic   *bool          `json:"enableMusic,omitempty"`
	NumberOfTeams *FlexInt       `json:"numberOfTeams,omitempty"`
}

// FlexInt accepts either a JSON integer or a string holding one ("3").
// Anything else decodes without error but reports Valid() == false, so the
// settings validator can reject the whole patch with a domain message.
type FlexInt struct {
	Value int
	valid bool
	raw   string
}

func NewFlexInt(v int) *FlexInt {
	return &FlexInt{Value: v, valid: true}
}

func (f *FlexInt) Valid() bool { return f != nil && f.valid }

func (f *FlexInt) String() string {
	if f == nil {
		return "<nil>"
	}
	if f.valid {
		return strconv.Itoa(f.Value)
	}
	return f.raw
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	f.raw = string(data)
	f.valid = false

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("numberOfTeams: %w", err)
		}
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			f.Value, f.valid = n, true
		}
		return nil
	}

	var n float64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return nil
	}
	if n == math.Trunc(n) && !math.IsInf(n, 0) {
		f.Value, f.valid = int(n), true
	}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}
