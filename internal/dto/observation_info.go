package dto

import (
	"encoding/json"
	"time"

	"facecam/internal/model"
)

// ObservationInfo is one row of the observations table.
type ObservationInfo struct {
	ID        int64     `json:"id"`
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
	Timestamp string    `json:"timestamp"`
	Age       model.Age `json:"age"`
	Gender    string    `json:"gender"`
	Race      string    `json:"race"`
}

func NewObservationInfo(obs model.Observation) ObservationInfo {
	return ObservationInfo{
		ID:        obs.ID,
		Date:      obs.Timestamp,
		TimeOfDay: obs.Timestamp,
		Timestamp: obs.FormattedTimestamp(),
		Age:       obs.Age,
		Gender:    obs.Gender,
		Race:      obs.Race,
	}
}

// MarshalJSON customizes JSON output to format date and time-of-day.
func (o ObservationInfo) MarshalJSON() ([]byte, error) {
	type Alias ObservationInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      o.Date.Format("02-01-2006"),
		TimeOfDay: o.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(o),
	})
}
