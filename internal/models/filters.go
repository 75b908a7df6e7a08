package models

import (
	"fmt"
	"strconv"
)

type Period string

const (
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

type Breakdown string

const (
	BreakdownCategory   Breakdown = "category"
	BreakdownAttraction Breakdown = "attraction"
	BreakdownTime       Breakdown = "time"
)

type Role string

const (
	RoleAuthority Role = "AUTHORITY"
	RoleOwner     Role = "OWNER"
)

// Filters is the inbound request for one dashboard view. An empty Role means
// the caller is not authenticated.
type Filters struct {
	Period       Period    `json:"period" validate:"required,period"`
	AttractionID *int      `json:"attraction_id,omitempty" validate:"omitempty,gt=0"`
	Breakdown    Breakdown `json:"breakdown,omitempty" validate:"omitempty,breakdown"`
	Role         Role      `json:"role,omitempty" validate:"omitempty,viewer_role"`
}

// WithDefaults fills the period when the caller left it empty.
func (f Filters) WithDefaults() Filters {
	if f.Period == "" {
		f.Period = PeriodMonth
	}
	return f
}

func (f Filters) IsAuthenticated() bool {
	return f.Role != ""
}

// Key identifies filters for request coalescing.
func (f Filters) Key() string {
	attraction := "-"
	if f.AttractionID != nil {
		attraction = strconv.Itoa(*f.AttractionID)
	}
	return fmt.Sprintf("%s|%s|%s|%s", f.Period, attraction, f.Breakdown, f.Role)
}

// Scale converts a monthly baseline into the requested period.
func (p Period) Scale() float64 {
	switch p {
	case PeriodWeek:
		return 0.25
	case PeriodQuarter:
		return 3
	case PeriodYear:
		return 12
	default:
		return 1
	}
}
