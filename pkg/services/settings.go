package services

import (
	"strings"

	"github.com/backsoul/trivia/pkg/models"
)

// ApplySettingsPatch validates the whole patch first and only then merges it into a copy of
// current. On error current is returned unchanged.
func ApplySettingsPatch(current models.Settings, patch models.SettingsPatch) (models.Settings, error) {
	if err := validateSettingsPatch(patch); err != nil {
		return current, err
	}

	next := current
	for team, name := range patch.TeamNames {
		next.TeamNames[team-1] = strings.TrimSpace(name)
	}
	if patch.TimerDuration != nil {
		next.TimerDuration = *patch.TimerDuration
	}
	if patch.PointsCorrect != nil {
		next.PointsCorrect = *patch.PointsCorrect
	}
	if patch.PointsWrong != nil {
		next.PointsWrong = *patch.PointsWrong
	}
	if patch.EnableSound != nil {
		next.EnableSound = *patch.EnableSound
	}
	if patch.EnableMusic != nil {
		next.EnableMusic = *patch.EnableMusic
	}
	if patch.NumberOfTeams != nil {
		next.NumberOfTeams = patch.NumberOfTeams.Value
	}
	return next, nil
}

func validateSettingsPatch(patch models.SettingsPatch) error {
	if patch.NumberOfTeams != nil {
		if !patch.NumberOfTeams.Valid() {
			return validationError("Number of teams must be an integer, got %s", patch.NumberOfTeams)
		}
		if n := patch.NumberOfTeams.Value; n < models.MinTeams || n > models.MaxTeams {
			return validationError("Number of teams must be between %d and %d", models.MinTeams, models.MaxTeams)
		}
	}
	if patch.TimerDuration != nil && *patch.TimerDuration < 1 {
		return validationError("Timer duration must be at least 1 second")
	}
	for team := range patch.TeamNames {
		if team < 1 || team > models.MaxTeams {
			return validationError("Invalid team %d in team names (1-%d)", team, models.MaxTeams)
		}
	}
	return nil
}
