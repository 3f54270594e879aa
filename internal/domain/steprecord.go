package domain

import "time"

// StepRecord captures one completed workflow step for the run journal.
// String fields avoid precision issues when rendered in UI layers.
type StepRecord struct {
	Timestamp time.Time `json:"ts"`
	Step      string    `json:"step"`
	Amount    string    `json:"amount,omitempty"`
	// Position after the step, reference-asset denominated.
	TotalCollateral  string `json:"total_collateral,omitempty"`
	TotalDebt        string `json:"total_debt,omitempty"`
	AvailableBorrows string `json:"available_borrows,omitempty"`
}

// StepRecordEntry bundles a record with the journal index it originated from.
type StepRecordEntry struct {
	Index  uint64
	Record StepRecord
}
