package audit

import (
	"database/sql"
	"time"
)

// Log records delivery lifecycle events. Entries are append-only and never
// read by the orchestrator itself.
type Log interface {
	Record(deliveryType string, deliveryID int, action, details string) error
}

// SQLLog writes audit entries to the delivery_audit table.
type SQLLog struct {
	DB *sql.DB
}

func (l *SQLLog) Record(deliveryType string, deliveryID int, action, details string) error {
	query := `
        INSERT INTO delivery_audit (delivery_type, delivery_id, action, details, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := l.DB.Exec(query, deliveryType, deliveryID, action, details, time.Now())
	return err
}
