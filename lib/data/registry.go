package data

import (
	"context"
	"database/sql"
	"fmt"
	"ticketing/lib/apperrors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// namedRow is the common shape of the role and permission catalogs
type namedRow struct {
	ID          string
	Name        string
	Description string
}

// registryTable implements the shared catalog operations for a table with a
// unique name column. assignmentColumn is the column of
// ticketing.role_permission that references the table.
type registryTable struct {
	table            string
	entity           string
	assignmentColumn string
	db               *sql.DB
	logger           *logrus.Logger
}

func (r registryTable) create(ctx context.Context, name, description string) (*namedRow, error) {
	exists, err := r.nameTaken(ctx, r.db, name, "")
	if err != nil {
		return nil, err
	}
	if exists {
		r.logger.WithFields(logrus.Fields{
			r.entity + "_name": name,
		}).Warn("Duplicate " + r.entity + " name")
		return nil, apperrors.Conflict("%s name %q already exists", r.entity, name)
	}

	row := &namedRow{ID: uuid.NewString(), Name: name, Description: description}
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, name, description)
		VALUES ($1, $2, $3)
	`, r.table), row.ID, row.Name, row.Description)

	if isUniqueViolation(err) {
		return nil, apperrors.Conflict("%s name %q already exists", r.entity, name)
	}
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			r.entity + "_name": name,
			"error":            err.Error(),
		}).Error("Failed to create " + r.entity)
		return nil, apperrors.Internal("failed to create "+r.entity, err)
	}

	r.logger.WithFields(logrus.Fields{
		r.entity + "_id":   row.ID,
		r.entity + "_name": row.Name,
	}).Info("Successfully created " + r.entity)

	return row, nil
}

func (r registryTable) list(ctx context.Context) ([]namedRow, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, name, description
		FROM %s
		ORDER BY name ASC
	`, r.table))
	if err != nil {
		r.logger.WithError(err).Error("Failed to query " + r.entity + "s")
		return nil, apperrors.Internal("failed to query "+r.entity+"s", err)
	}
	defer rows.Close()

	result := []namedRow{}
	for rows.Next() {
		var row namedRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Description); err != nil {
			r.logger.WithError(err).Error("Failed to scan " + r.entity + " row")
			return nil, apperrors.Internal("failed to scan "+r.entity, err)
		}
		result = append(result, row)
	}
	if err = rows.Err(); err != nil {
		r.logger.WithError(err).Error("Error iterating " + r.entity + " rows")
		return nil, apperrors.Internal("error iterating "+r.entity+"s", err)
	}

	r.logger.WithField("count", len(result)).Debug("Successfully retrieved " + r.entity + "s")
	return result, nil
}

func (r registryTable) getByID(ctx context.Context, id string) (*namedRow, error) {
	return r.get(ctx, r.db, id, "")
}

func (r registryTable) get(ctx context.Context, q queryer, id, lock string) (*namedRow, error) {
	var row namedRow
	err := q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, name, description
		FROM %s
		WHERE id = $1 %s
	`, r.table, lock), id).Scan(&row.ID, &row.Name, &row.Description)

	if err == sql.ErrNoRows {
		r.logger.WithField(r.entity+"_id", id).Warn(r.entity + " not found")
		return nil, apperrors.NotFound(r.entity)
	}
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			r.entity + "_id": id,
			"error":          err.Error(),
		}).Error("Failed to get " + r.entity)
		return nil, apperrors.Internal("failed to get "+r.entity, err)
	}
	return &row, nil
}

// nameTaken reports whether name is held by a row other than exceptID
func (r registryTable) nameTaken(ctx context.Context, q queryer, name, exceptID string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE name = $1 AND id <> $2
	`, r.table), name, exceptID).Scan(&count)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			r.entity + "_name": name,
			"error":            err.Error(),
		}).Error("Failed to check " + r.entity + " name")
		return false, apperrors.Internal("failed to check "+r.entity+" name", err)
	}
	return count > 0, nil
}

func (r registryTable) update(ctx context.Context, id string, name, description *string) (*namedRow, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.WithError(err).Error("Failed to start transaction for " + r.entity + " update")
		return nil, apperrors.Internal("failed to start transaction", err)
	}
	defer tx.Rollback()

	row, err := r.get(ctx, tx, id, "FOR UPDATE")
	if err != nil {
		return nil, err
	}

	if name != nil && *name != row.Name {
		taken, err := r.nameTaken(ctx, tx, *name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			r.logger.WithFields(logrus.Fields{
				r.entity + "_id":   id,
				r.entity + "_name": *name,
			}).Warn("Rename onto an existing " + r.entity + " name")
			return nil, apperrors.Conflict("%s name %q already exists", r.entity, *name)
		}
		row.Name = *name
	}
	if description != nil {
		row.Description = *description
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET name = $1, description = $2 WHERE id = $3
	`, r.table), row.Name, row.Description, id)
	if isUniqueViolation(err) {
		return nil, apperrors.Conflict("%s name %q already exists", r.entity, row.Name)
	}
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			r.entity + "_id": id,
			"error":          err.Error(),
		}).Error("Failed to update " + r.entity)
		return nil, apperrors.Internal("failed to update "+r.entity, err)
	}

	if err = tx.Commit(); err != nil {
		r.logger.WithError(err).Error("Failed to commit " + r.entity + " update transaction")
		return nil, apperrors.Internal("failed to commit transaction", err)
	}

	r.logger.WithFields(logrus.Fields{
		r.entity + "_id":   id,
		r.entity + "_name": row.Name,
	}).Info("Successfully updated " + r.entity)

	return row, nil
}

// delete removes the row and every assignment that references it
func (r registryTable) delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.WithError(err).Error("Failed to start transaction for " + r.entity + " deletion")
		return apperrors.Internal("failed to start transaction", err)
	}
	defer tx.Rollback()

	removed, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM ticketing.role_permission WHERE %s = $1
	`, r.assignmentColumn), id)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			r.entity + "_id": id,
			"error":          err.Error(),
		}).Error("Failed to remove role-permission assignments")
		return apperrors.Internal("failed to remove "+r.entity+" assignments", err)
	}

	result, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE id = $1
	`, r.table), id)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			r.entity + "_id": id,
			"error":          err.Error(),
		}).Error("Failed to delete " + r.entity)
		return apperrors.Internal("failed to delete "+r.entity, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		r.logger.WithField(r.entity+"_id", id).Warn(r.entity + " not found for deletion")
		return apperrors.NotFound(r.entity)
	}

	if err = tx.Commit(); err != nil {
		r.logger.WithError(err).Error("Failed to commit " + r.entity + " deletion transaction")
		return apperrors.Internal("failed to commit transaction", err)
	}

	assignmentsRemoved, _ := removed.RowsAffected()
	r.logger.WithFields(logrus.Fields{
		r.entity + "_id":      id,
		"assignments_removed": assignmentsRemoved,
	}).Info("Successfully deleted " + r.entity + " and all assignments")

	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
