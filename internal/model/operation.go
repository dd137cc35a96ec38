package model

import (
	"encoding/json"
)

// OperationKind names a committed pool operation.
type OperationKind string

const (
	OperationCreatePool OperationKind = "create_pool"
	OperationDeposit    OperationKind = "deposit"
	OperationSwap       OperationKind = "swap"
	OperationWithdraw   OperationKind = "withdraw"
)

// OperationRecord is the journal entry written after an operation commits.
type OperationRecord struct {
	Kind        OperationKind `json:"kind"`
	Pool        AccountID     `json:"pool"`
	Actor       AccountID     `json:"actor"`
	FeeBps      uint64        `json:"fee_bps"`
	AmountA     uint64        `json:"amount_a,omitempty"`
	AmountB     uint64        `json:"amount_b,omitempty"`
	AmountIn    uint64        `json:"amount_in,omitempty"`
	AmountOut   uint64        `json:"amount_out,omitempty"`
	Source      *AccountID    `json:"source,omitempty"`
	Destination *AccountID    `json:"destination,omitempty"`
	ReserveIn   uint64        `json:"reserve_in,omitempty"`
	ReserveOut  uint64        `json:"reserve_out,omitempty"`
	Timestamp   string        `json:"timestamp"`
}

// MarshalJSON ensures OperationRecord is encoded with stable field names.
func (r OperationRecord) MarshalJSON() ([]byte, error) {
	type Alias OperationRecord
	return json.Marshal(Alias(r))
}

// UnmarshalJSON decodes an OperationRecord from JSON.
func (r *OperationRecord) UnmarshalJSON(data []byte) error {
	type Alias OperationRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = OperationRecord(a)
	return nil
}
