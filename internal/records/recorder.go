// Package records is the boundary to the record-keeping collaborator:
// fire-and-forget writes of settled payments for later reporting. A
// recorder failure never rolls back or blocks a settlement.
package records

import (
	"context"
	"time"
)

// SettlementRecord is the reporting view of one settled payment.
type SettlementRecord struct {
	Payer        string    `json:"payer"`
	SessionId    string    `json:"session_id"`
	Amount       int64     `json:"amount"`
	ReceiptId    string    `json:"receipt_id"`
	ServiceLabel string    `json:"service_label"`
	Timestamp    time.Time `json:"timestamp"`
}

// Recorder accepts settlement records for out-of-band reporting.
type Recorder interface {
	Record(ctx context.Context, record SettlementRecord) error
}

// NopRecorder discards records. Used when record publishing is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(_ context.Context, _ SettlementRecord) error {
	return nil
}
