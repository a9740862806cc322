package data

import (
	"context"
	"database/sql"
	"ticketing/lib/apperrors"
	"ticketing/lib/models"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// TicketRepository defines the interface for ticket data operations
type TicketRepository interface {
	// CreateTicket numbers and inserts a ticket in the given project
	CreateTicket(ctx context.Context, userID string, req *models.CreateTicketRequest) (*models.Ticket, error)

	// GetTicketByID retrieves a specific ticket
	GetTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error)

	// GetTicketsByProject lists a project's tickets, optionally restricted to some statuses
	GetTicketsByProject(ctx context.Context, projectID string, statuses []string) ([]models.Ticket, error)

	// UpdateTicketStatus changes the status of a ticket
	UpdateTicketStatus(ctx context.Context, ticketID, status string) (*models.Ticket, error)
}

// TicketDao implements TicketRepository interface using PostgreSQL
type TicketDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
	Now    func() time.Time
}

const ticketColumns = `
	id, project_id, ticket_number, title, description, status, priority,
	owner_id, sla_due_at, created_by, created_at, updated_at
`

func (dao *TicketDao) now() time.Time {
	if dao.Now != nil {
		return dao.Now().UTC()
	}
	return time.Now().UTC()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var ticket models.Ticket
	var ownerID sql.NullString
	var slaDueAt sql.NullTime
	err := row.Scan(
		&ticket.ID,
		&ticket.ProjectID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ownerID,
		&slaDueAt,
		&ticket.CreatedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ownerID.Valid {
		ticket.OwnerID = &ownerID.String
	}
	if slaDueAt.Valid {
		ticket.SLADueAt = &slaDueAt.Time
	}
	return &ticket, nil
}

// generateTicketNumber returns the next CODE-YYMM-NNNN for the customer.
// The customer row is locked by the caller so numbers are not handed out twice.
func (dao *TicketDao) generateTicketNumber(ctx context.Context, tx *sql.Tx, customerID, customerCode string, createdAt time.Time) (string, error) {
	monthStart, monthEnd := models.MonthBounds(createdAt)

	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) + 1
		FROM ticketing.ticket t
		JOIN ticketing.project p ON p.id = t.project_id
		WHERE p.customer_id = $1 AND t.created_at >= $2 AND t.created_at < $3
	`, customerID, monthStart, monthEnd).Scan(&count)
	if err != nil {
		return "", apperrors.Internal("failed to get ticket count", err)
	}

	return models.FormatTicketNumber(customerCode, createdAt, count), nil
}

// CreateTicket creates a new ticket with a per-customer monthly number
func (dao *TicketDao) CreateTicket(ctx context.Context, userID string, req *models.CreateTicketRequest) (*models.Ticket, error) {
	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		dao.Logger.WithError(err).Error("Failed to start transaction for ticket creation")
		return nil, apperrors.Internal("failed to start transaction", err)
	}
	defer tx.Rollback()

	var customerID, customerCode string
	err = tx.QueryRowContext(ctx, `
		SELECT c.id, c.code
		FROM ticketing.project p
		JOIN ticketing.customer c ON c.id = p.customer_id
		WHERE p.id = $1
		FOR UPDATE OF c
	`, req.ProjectID).Scan(&customerID, &customerCode)
	if err == sql.ErrNoRows {
		dao.Logger.WithField("project_id", req.ProjectID).Warn("Project not found")
		return nil, apperrors.NotFound("project")
	}
	if err != nil {
		dao.Logger.WithError(err).Error("Failed to validate project")
		return nil, apperrors.Internal("failed to validate project", err)
	}

	createdAt := dao.now()
	ticketNumber, err := dao.generateTicketNumber(ctx, tx, customerID, customerCode, createdAt)
	if err != nil {
		dao.Logger.WithError(err).Error("Failed to generate ticket number")
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = models.TicketPriorityMedium
	}

	var ownerID sql.NullString
	if req.OwnerID != "" {
		ownerID = sql.NullString{String: req.OwnerID, Valid: true}
	}

	var slaDueAt sql.NullTime
	if due := models.SLADueAt(priority, createdAt); due != nil {
		slaDueAt = sql.NullTime{Time: *due, Valid: true}
	}

	ticket, err := scanTicket(tx.QueryRowContext(ctx, `
		INSERT INTO ticketing.ticket (
			id, project_id, ticket_number, title, description, status, priority,
			owner_id, sla_due_at, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING `+ticketColumns,
		uuid.NewString(), req.ProjectID, ticketNumber, req.Title, req.Description,
		models.TicketStatusOpen, priority, ownerID, slaDueAt, userID, createdAt,
	))
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"project_id":    req.ProjectID,
			"ticket_number": ticketNumber,
			"error":         err.Error(),
		}).Error("Failed to create ticket")
		return nil, apperrors.Internal("failed to create ticket", err)
	}

	if err = tx.Commit(); err != nil {
		dao.Logger.WithError(err).Error("Failed to commit ticket creation transaction")
		return nil, apperrors.Internal("failed to commit transaction", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"ticket_id":     ticket.ID,
		"ticket_number": ticket.TicketNumber,
		"project_id":    ticket.ProjectID,
	}).Info("Successfully created ticket")

	return ticket, nil
}

// GetTicketByID retrieves a specific ticket
func (dao *TicketDao) GetTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := scanTicket(dao.DB.QueryRowContext(ctx, `
		SELECT `+ticketColumns+`
		FROM ticketing.ticket
		WHERE id = $1
	`, ticketID))

	if err == sql.ErrNoRows {
		dao.Logger.WithField("ticket_id", ticketID).Warn("Ticket not found")
		return nil, apperrors.NotFound("ticket")
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"ticket_id": ticketID,
			"error":     err.Error(),
		}).Error("Failed to get ticket")
		return nil, apperrors.Internal("failed to get ticket", err)
	}
	return ticket, nil
}

// GetTicketsByProject lists tickets newest first
func (dao *TicketDao) GetTicketsByProject(ctx context.Context, projectID string, statuses []string) ([]models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM ticketing.ticket
		WHERE project_id = $1`
	args := []interface{}{projectID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(statuses))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := dao.DB.QueryContext(ctx, query, args...)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"project_id": projectID,
			"error":      err.Error(),
		}).Error("Failed to query tickets")
		return nil, apperrors.Internal("failed to query tickets", err)
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			dao.Logger.WithError(err).Error("Failed to scan ticket row")
			return nil, apperrors.Internal("failed to scan ticket", err)
		}
		tickets = append(tickets, *ticket)
	}
	if err = rows.Err(); err != nil {
		dao.Logger.WithError(err).Error("Error iterating ticket rows")
		return nil, apperrors.Internal("error iterating tickets", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"project_id": projectID,
		"count":      len(tickets),
	}).Debug("Successfully retrieved tickets for project")
	return tickets, nil
}

// UpdateTicketStatus updates only the status of a ticket
func (dao *TicketDao) UpdateTicketStatus(ctx context.Context, ticketID, status string) (*models.Ticket, error) {
	ticket, err := scanTicket(dao.DB.QueryRowContext(ctx, `
		UPDATE ticketing.ticket
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+ticketColumns,
		status, dao.now(), ticketID,
	))

	if err == sql.ErrNoRows {
		dao.Logger.WithField("ticket_id", ticketID).Warn("Ticket not found for status update")
		return nil, apperrors.NotFound("ticket")
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"ticket_id": ticketID,
			"status":    status,
			"error":     err.Error(),
		}).Error("Failed to update ticket status")
		return nil, apperrors.Internal("failed to update ticket status", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"ticket_id": ticketID,
		"status":    status,
	}).Info("Successfully updated ticket status")
	return ticket, nil
}
