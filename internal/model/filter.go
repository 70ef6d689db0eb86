package model

import "strings"

// ObservationFilter is an AND of the set predicates.
// Gender and Race values "", "all" and "none" (any case) disable their predicate.
type ObservationFilter struct {
	Gender string
	Race   string
	MinAge *int
	MaxAge *int
}

func (f ObservationFilter) GenderPredicate() (string, bool) {
	return predicate(f.Gender)
}

func (f ObservationFilter) RacePredicate() (string, bool) {
	return predicate(f.Race)
}

func predicate(v string) (string, bool) {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "all", "none":
		return "", false
	}
	return v, true
}

// IntPtr is a convenience for building filters.
func IntPtr(v int) *int {
	return &v
}
