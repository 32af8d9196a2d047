package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsPatchDecoding(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantValid bool
		wantValue int
	}{
		{"integer", `{"numberOfTeams": 3}`, true, 3},
		{"numeric string", `{"numberOfTeams": "4"}`, true, 4},
		{"integral float", `{"numberOfTeams": 2.0}`, true, 2},
		{"fraction", `{"numberOfTeams": 2.5}`, false, 0},
		{"word", `{"numberOfTeams": "three"}`, false, 0},
		{"bool", `{"numberOfTeams": true}`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var patch SettingsPatch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &patch))
			require.NotNil(t, patch.NumberOfTeams)
			assert.Equal(t, tt.wantValid, patch.NumberOfTeams.Valid())
			if tt.wantValid {
				assert.Equal(t, tt.wantValue, patch.NumberOfTeams.Value)
			}
		})
	}
}

func TestSettingsPatchIgnoresUnknownKeys(t *testing.T) {
	var patch SettingsPatch
	body := `{"timerDuration": 45, "teamNames": {"2": "Owls"}, "somethingElse": 1}`

	require.NoError(t, json.Unmarshal([]byte(body), &patch))
	require.NotNil(t, patch.TimerDuration)
	assert.Equal(t, 45, *patch.TimerDuration)
	assert.Equal(t, map[int]string{2: "Owls"}, patch.TeamNames)
	assert.Nil(t, patch.NumberOfTeams)
}

func TestSettingsTeamName(t *testing.T) {
	s := DefaultSettings()

	name, ok := s.TeamName(2)
	assert.True(t, ok)
	assert.Equal(t, "Team 2", name)

	_, ok = s.TeamName(3)
	assert.False(t, ok, "team 3 is inactive with two teams")
}
