package models

import "time"

// Audit actions recorded by the booking engine.
const (
	AuditActionBookingApprove = "BOOKING_APPROVE"
	AuditActionBookingReject  = "BOOKING_REJECT"
	AuditActionBookingCancel  = "BOOKING_CANCEL"
	AuditActionSlotCreate     = "TIME_SLOT_CREATE"
	AuditActionSlotUpdate     = "TIME_SLOT_UPDATE"
	AuditActionSlotDelete     = "TIME_SLOT_DELETE"
	AuditActionLimitSet       = "TIME_SLOT_LIMIT_SET"
	AuditActionSettingsUpdate = "SETTINGS_UPDATE"
	AuditActionBulkApply      = "BOOKING_BULK_APPLY"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
