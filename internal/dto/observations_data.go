// ObservationsData is the response payload for the observations table.
package dto

type ObservationsData struct {
	Observations []ObservationInfo `json:"observations"`
	Length       int               `json:"length"`
	Filters      FilterEcho        `json:"filters"`
}

// FilterEcho repeats the filters the query was run with.
type FilterEcho struct {
	Gender string `json:"gender"`
	Race   string `json:"race"`
	MinAge *int   `json:"minAge,omitempty"`
	MaxAge *int   `json:"maxAge,omitempty"`
}
