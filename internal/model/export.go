package model

import "time"

// Export is the top-level JSON structure written by the export command.
type Export struct {
	ExportedAt      time.Time    `json:"exported_at"`
	SystemPrompt    SystemPrompt `json:"system_prompt"`
	NumSubmissions  int          `json:"num_submissions"`
	NumAssignments  int          `json:"num_assignments"`
	Assignments     []Assignment `json:"assignments"`
	Submissions     []Submission `json:"submissions"`
	StateBreakdown  StateCounts  `json:"state_breakdown"`
	CurrentAssignID *int64       `json:"current_assignment_id,omitempty"`
}

// StateCounts tallies submissions per lifecycle state.
type StateCounts struct {
	New        int `json:"new"`
	Questioned int `json:"questioned"`
	Answered   int `json:"answered"`
}

// Add counts one submission in the given state.
func (c *StateCounts) Add(s SubmissionState) {
	switch s {
	case StateNew:
		c.New++
	case StateQuestioned:
		c.Questioned++
	case StateAnswered:
		c.Answered++
	}
}
