package relayer

import (
	"time"

	"streampay-relayer-go/internal/models"
	"streampay-relayer-go/internal/protocol"
)

// Result is the structured outcome of executing one charge request:
// either a settlement receipt with cost accounting, or a classified
// rejection. Rejections are never silently swallowed or downgraded.
type Result struct {
	Settled bool

	// Success fields.
	ReceiptId    string
	Amount       int64
	ServiceLabel string
	Metadata     map[string]string
	Cost         int64
	Elapsed      time.Duration

	// Failure fields.
	Reason protocol.Reason
	Detail string
}

// Response renders the result as the wire-level charge response.
func (r *Result) Response() models.ChargeResponse {
	if !r.Settled {
		return models.ChargeResponse{
			Settled: false,
			Reason:  string(r.Reason),
			Detail:  r.Detail,
		}
	}
	return models.ChargeResponse{
		Settled:      true,
		ReceiptId:    r.ReceiptId,
		Amount:       r.Amount,
		ServiceLabel: r.ServiceLabel,
		Metadata:     r.Metadata,
		Cost:         r.Cost,
		ElapsedMs:    r.Elapsed.Milliseconds(),
	}
}
