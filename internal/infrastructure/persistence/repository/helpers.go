package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/mattn/go-sqlite3"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// uniqueColumns maps the column list sqlite reports for a unique violation to
// the constraint it enforces
var uniqueColumns = map[string]string{
	"job_cards.job_card_number":                                               port.ConstraintJobCardNumber,
	"job_cards.vehicle_id, job_cards.service_center_id":                       port.ConstraintActiveJobCard,
	"quotations.quotation_number":                                             port.ConstraintQuotationNumber,
	"quotations.customer_id, quotations.vehicle_id, quotations.document_type": port.ConstraintActiveQuotation,
	"quotations.job_card_id, quotations.document_type":                        port.ConstraintJobCardQuotation,
}

// translateError converts driver errors into port errors
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return port.ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		_, cols, _ := strings.Cut(sqliteErr.Error(), "constraint failed: ")
		constraint, ok := uniqueColumns[cols]
		if !ok {
			constraint = cols
		}
		return &port.DuplicateError{Constraint: constraint, Err: err}
	}
	return err
}

// checkUpdated turns a zero-row compare-and-set update into a version conflict
func checkUpdated(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return port.ErrVersionConflict
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func toJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal json column: %w", err)
	}
	return string(b), nil
}

func fromJSON(s sql.NullString, v interface{}) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s.String), v); err != nil {
		return fmt.Errorf("failed to unmarshal json column: %w", err)
	}
	return nil
}
