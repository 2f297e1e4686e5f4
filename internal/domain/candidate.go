package domain

// Availability of a technician or vendor for new work.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityBusy      Availability = "busy"
	AvailabilityOffline   Availability = "offline"
)

// AssignmentCandidate is a scored technician or vendor considered by
// the auto-assignment engine. Score and Reasons are computed per
// invocation and never persisted.
type AssignmentCandidate struct {
	ID              string
	Type            AssigneeType
	Name            string
	Skills          []string
	Availability    Availability
	CurrentWorkload int
	MaxWorkload     int
	Rating          float64 // 0 when unrated, otherwise 0-5
	Score           float64
	Reasons         []string
}

// HasSkillOverlap reports whether the candidate covers at least one of
// the required skills. An empty requirement list matches everyone.
func (c AssignmentCandidate) HasSkillOverlap(required []string) bool {
	if len(required) == 0 {
		return true
	}
	return c.MatchedSkills(required) > 0
}

// MatchedSkills counts how many required skills the candidate covers.
func (c AssignmentCandidate) MatchedSkills(required []string) int {
	matched := 0
	for _, want := range required {
		for _, have := range c.Skills {
			if want == have {
				matched++
				break
			}
		}
	}
	return matched
}
