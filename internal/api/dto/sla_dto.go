package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SLADefinitionRequest payload.
type SLADefinitionRequest struct {
	Name                  string `json:"name"`
	Priority              string `json:"priority"`
	ResponseTimeMinutes   int    `json:"response_time_minutes"`
	ResolutionTimeMinutes int    `json:"resolution_time_minutes"`
	BusinessHoursOnly     bool   `json:"business_hours_only"`
	BusinessStartHour     int    `json:"business_start_hour"`
	BusinessEndHour       int    `json:"business_end_hour"`
	BusinessDays          []int  `json:"business_days"`
	IsActive              *bool  `json:"is_active"`
}

// SLADefinitionResponse mirrors a stored definition.
type SLADefinitionResponse struct {
	ID                    string                `json:"id"`
	Name                  string                `json:"name"`
	Priority              domain.TicketPriority `json:"priority"`
	ResponseTimeMinutes   int                   `json:"response_time_minutes"`
	ResolutionTimeMinutes int                   `json:"resolution_time_minutes"`
	BusinessHoursOnly     bool                  `json:"business_hours_only"`
	IsActive              bool                  `json:"is_active"`
	CreatedAt             time.Time             `json:"created_at"`
}

// SLAViolationResponse is one missed or growing deadline.
type SLAViolationResponse struct {
	ExpectedAt       time.Time  `json:"expected_at"`
	ActualAt         *time.Time `json:"actual_at,omitempty"`
	ViolationMinutes float64    `json:"violation_minutes"`
	Live             bool       `json:"live"`
}

// SLAStatusResponse is the on-demand deadline report for a ticket.
type SLAStatusResponse struct {
	Defined              bool                  `json:"defined"`
	DefinitionID         string                `json:"definition_id,omitempty"`
	ExpectedResponseAt   *time.Time            `json:"expected_response_at,omitempty"`
	ExpectedResolutionAt *time.Time            `json:"expected_resolution_at,omitempty"`
	FirstResponseAt      *time.Time            `json:"first_response_at,omitempty"`
	ResolvedAt           *time.Time            `json:"resolved_at,omitempty"`
	Response             *SLAViolationResponse `json:"response_violation,omitempty"`
	Resolution           *SLAViolationResponse `json:"resolution_violation,omitempty"`
}

// NewSLAStatusResponse maps a computed status.
func NewSLAStatusResponse(status *domain.SLAStatus) SLAStatusResponse {
	resp := SLAStatusResponse{Defined: status.Defined}
	if !status.Defined {
		return resp
	}
	resp.DefinitionID = status.DefinitionID
	expectedResponse := status.ExpectedResponseAt
	expectedResolution := status.ExpectedResolutionAt
	resp.ExpectedResponseAt = &expectedResponse
	resp.ExpectedResolutionAt = &expectedResolution
	resp.FirstResponseAt = status.FirstResponseAt
	resp.ResolvedAt = status.ResolvedAt
	resp.Response = newViolation(status.Response)
	resp.Resolution = newViolation(status.Resolution)
	return resp
}

func newViolation(v *domain.SLAViolation) *SLAViolationResponse {
	if v == nil {
		return nil
	}
	return &SLAViolationResponse{
		ExpectedAt:       v.ExpectedAt,
		ActualAt:         v.ActualAt,
		ViolationMinutes: v.ViolationMinutes,
		Live:             v.Live,
	}
}

// NewSLADefinitionResponse maps a stored definition.
func NewSLADefinitionResponse(def *domain.SLADefinition) SLADefinitionResponse {
	return SLADefinitionResponse{
		ID:                    def.ID,
		Name:                  def.Name,
		Priority:              def.Priority,
		ResponseTimeMinutes:   def.ResponseTimeMinutes,
		ResolutionTimeMinutes: def.ResolutionTimeMinutes,
		BusinessHoursOnly:     def.BusinessHoursOnly,
		IsActive:              def.IsActive,
		CreatedAt:             def.CreatedAt,
	}
}
