package domain

import "time"

// SLADefinition declares the response and resolution targets for a priority.
// One active definition per priority is authoritative; the most recently
// created wins on ties.
type SLADefinition struct {
	ID                    string
	Name                  string
	Priority              TicketPriority
	ResponseTimeMinutes   int
	ResolutionTimeMinutes int
	BusinessHoursOnly     bool
	BusinessStartHour     int
	BusinessEndHour       int
	BusinessDays          []time.Weekday
	IsActive              bool
	CreatedAt             time.Time
}

// SLAViolation records one missed (or still-growing) deadline.
type SLAViolation struct {
	ExpectedAt       time.Time
	ActualAt         *time.Time
	ViolationMinutes float64
	// Live is true when the deadline has passed but the event has not
	// happened yet, so the violation keeps growing.
	Live bool
}

// SLAStatus is the derived, on-demand deadline report for a ticket.
// Defined=false means no applicable SLA definition exists; this is a normal
// outcome, not an error.
type SLAStatus struct {
	Defined              bool
	DefinitionID         string
	ExpectedResponseAt   time.Time
	ExpectedResolutionAt time.Time
	FirstResponseAt      *time.Time
	ResolvedAt           *time.Time
	Response             *SLAViolation
	Resolution           *SLAViolation
}
