package models

import "strings"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps free-form upstream priorities onto the three levels.
// Unknown values become medium.
func ParsePriority(raw string) Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "critical", "urgent":
		return PriorityHigh
	case "low", "minor":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Rank orders priorities from most to least pressing.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

type ImprovementOpportunity struct {
	AttractionID    int      `json:"attraction_id"`
	AttractionName  string   `json:"attraction_name"`
	Category        string   `json:"category"`
	Issue           string   `json:"issue"`
	Description     string   `json:"description"`
	PotentialImpact string   `json:"potential_impact"`
	Recommendations []string `json:"recommendations"`
	Priority        Priority `json:"priority"`
}
