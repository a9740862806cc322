package models

import (
	"fmt"
	"time"
)

// Customer owns projects; Code prefixes every ticket number of the customer
type Customer struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Project groups the tickets of one customer
type Project struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
}

// Ticket is an IT ticket raised inside a project
type Ticket struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	TicketNumber string     `json:"ticket_number"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	OwnerID      *string    `json:"owner_id,omitempty"`
	SLADueAt     *time.Time `json:"sla_due_at,omitempty"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateTicketRequest is the body of POST /tickets
type CreateTicketRequest struct {
	ProjectID   string `json:"project_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high critical"`
	OwnerID     string `json:"owner_id,omitempty"`
}

// UpdateTicketStatusRequest is the body of PATCH /tickets/{id}/status
type UpdateTicketStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress on_hold resolved closed"`
}

// TicketListResponse represents the response for listing tickets
type TicketListResponse struct {
	Tickets []Ticket `json:"tickets"`
	Total   int      `json:"total"`
}

// Ticket Status Constants
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusOnHold     = "on_hold"
	TicketStatusResolved   = "resolved"
	TicketStatusClosed     = "closed"
)

var ticketStatuses = map[string]bool{
	TicketStatusOpen:       true,
	TicketStatusInProgress: true,
	TicketStatusOnHold:     true,
	TicketStatusResolved:   true,
	TicketStatusClosed:     true,
}

// IsTicketStatus reports whether status is one of the ticket statuses
func IsTicketStatus(status string) bool {
	return ticketStatuses[status]
}

// Ticket Priority Constants
const (
	TicketPriorityLow      = "low"
	TicketPriorityMedium   = "medium"
	TicketPriorityHigh     = "high"
	TicketPriorityCritical = "critical"
)

var slaByPriority = map[string]time.Duration{
	TicketPriorityCritical: 4 * time.Hour,
	TicketPriorityHigh:     24 * time.Hour,
	TicketPriorityMedium:   72 * time.Hour,
	TicketPriorityLow:      168 * time.Hour,
}

// SLADueAt returns when a ticket of the given priority opened at createdAt breaches its SLA
func SLADueAt(priority string, createdAt time.Time) *time.Time {
	window, ok := slaByPriority[priority]
	if !ok {
		return nil
	}
	due := createdAt.Add(window)
	return &due
}

// FormatTicketNumber builds CODE-YYMM-NNNN from the customer code, the
// creation month (UTC) and the 1-based sequence within that month.
func FormatTicketNumber(customerCode string, createdAt time.Time, sequence int) string {
	return fmt.Sprintf("%s-%s-%04d", customerCode, createdAt.UTC().Format("0601"), sequence)
}

// MonthBounds returns [start of month, start of next month) in UTC
func MonthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
