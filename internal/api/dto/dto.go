// Package dto holds the request and response shapes of the HTTP surface,
// kept separate from the domain types so wire changes never leak inward.
package dto

import (
	"time"

	"github.com/ThinkalVB/entebus-server/internal/domain"
	"github.com/ThinkalVB/entebus-server/internal/services"
)

type TickResponse struct {
	Candidates int `json:"candidates"`
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

func FromTickReport(r services.TickReport) TickResponse {
	return TickResponse{
		Candidates: r.Candidates,
		Created:    r.Created,
		Duplicates: r.Duplicates,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
	}
}

type TriggerRequest struct {
	ScheduleID int    `json:"schedule_id"`
	Occurrence string `json:"occurrence"` // YYYY-MM-DD
	Force      bool   `json:"force"`
}

type ServiceResponse struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	ScheduleID     int       `json:"schedule_id"`
	OccurrenceDate string    `json:"occurrence_date"`
	Status         string    `json:"status"`
	StartingAt     time.Time `json:"starting_at"`
	EndingAt       time.Time `json:"ending_at"`
	PublicKey      string    `json:"public_key"`
}

func FromService(svc *domain.Service) ServiceResponse {
	return ServiceResponse{
		ID:             svc.ID,
		Name:           svc.Name,
		ScheduleID:     svc.ScheduleID,
		OccurrenceDate: svc.OccurrenceDate.Format("2006-01-02"),
		Status:         svc.Status.String(),
		StartingAt:     svc.StartingAt,
		EndingAt:       svc.EndingAt,
		PublicKey:      svc.PublicKey,
	}
}

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// QuoteRequest prices a trip against the effective fare for a company.
// Pickup and drop points are optional; when present they are resolved to
// landmarks so the script sees the landmark tiers.
type QuoteRequest struct {
	CompanyID       int            `json:"company_id"`
	Fare            string         `json:"fare"`
	ExpectedVersion *int           `json:"expected_version,omitempty"`
	DistanceMeters  int            `json:"distance_meters"`
	TicketCounts    map[string]int `json:"ticket_counts"`
	Pickup          *Point         `json:"pickup,omitempty"`
	Drop            *Point         `json:"drop,omitempty"`
}

type QuoteResponse struct {
	Fare      string           `json:"fare"`
	Scope     string           `json:"scope"`
	Version   int              `json:"version"`
	Total     int64            `json:"total"`
	Breakdown map[string]int64 `json:"breakdown,omitempty"`
}

type TransitionServiceRequest struct {
	ServiceID int `json:"service_id"`
	To        int `json:"to"`
}

type TransitionDutyRequest struct {
	DutyID int `json:"duty_id"`
	To     int `json:"to"`
}

type AssignDutyRequest struct {
	ServiceID  int `json:"service_id"`
	OperatorID int `json:"operator_id"`
}

type DutyResponse struct {
	ID        int    `json:"id"`
	ServiceID int    `json:"service_id"`
	Passcode  string `json:"passcode"`
	Status    string `json:"status"`
}

func FromDuty(d *domain.Duty) DutyResponse {
	return DutyResponse{
		ID:        d.ID,
		ServiceID: d.ServiceID,
		Passcode:  d.Passcode,
		Status:    d.Status.String(),
	}
}

type PaperTicketRequest struct {
	ServiceID    int            `json:"service_id"`
	DutyID       int            `json:"duty_id"`
	PickupPoint  int            `json:"pickup_point"`
	DropPoint    int            `json:"drop_point"`
	TicketCounts map[string]int `json:"ticket_counts"`
}

type DigitalTicketRequest struct {
	ServiceID    int            `json:"service_id"`
	PickupPoint  int            `json:"pickup_point"`
	DropPoint    int            `json:"drop_point"`
	TicketCounts map[string]int `json:"ticket_counts"`
}

type TicketResponse struct {
	ID             int64            `json:"id"`
	ServiceID      int              `json:"service_id"`
	DutyID         int              `json:"duty_id,omitempty"`
	SequenceID     int              `json:"sequence_id"`
	DistanceMeters int              `json:"distance_meters"`
	Amount         int64            `json:"amount"`
	Breakdown      map[string]int64 `json:"breakdown,omitempty"`
}

func FromPaperTicket(t *domain.PaperTicket) TicketResponse {
	return TicketResponse{
		ID:             t.ID,
		ServiceID:      t.ServiceID,
		DutyID:         t.DutyID,
		SequenceID:     t.SequenceID,
		DistanceMeters: t.DistanceMeters,
		Amount:         t.Amount,
		Breakdown:      t.Breakdown,
	}
}

func FromDigitalTicket(t *domain.DigitalTicket) TicketResponse {
	return TicketResponse{
		ID:             t.ID,
		ServiceID:      t.ServiceID,
		SequenceID:     t.SequenceID,
		DistanceMeters: t.DistanceMeters,
		Amount:         t.Amount,
		Breakdown:      t.Breakdown,
	}
}
