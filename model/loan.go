// model/loan.go
package model

import "time"

type LoanStatus string

const (
	LoanOpen   LoanStatus = "OPEN"
	LoanClosed LoanStatus = "CLOSED"
)

// BookLoan is one borrowing of a BookInstance. Open loans have a null
// return date and status OPEN; Return closes them for good (loans form the
// borrowing history and are never deleted).
type BookLoan struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	BookInstanceID int64      `json:"book_instance_id"`
	Status         LoanStatus `json:"status"`
	LoanDate       time.Time  `json:"loan_date"`
	DueDate        time.Time  `json:"due_date"`
	ReturnDate     *time.Time `json:"return_date,omitempty"`
	RenewCount     int        `json:"renew_count"`
	FineAmount     float64    `json:"fine_amount"`
}

type LedgerEntryType string

const (
	LedgerFinePayment    LedgerEntryType = "FINE_PAYMENT"
	LedgerFineAdjustment LedgerEntryType = "FINE_ADJUSTMENT"
)

// FineLedgerEntry records a settlement against the fine of a closed loan.
// BalanceAfter is the loan's outstanding fine after the entry was applied.
type FineLedgerEntry struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	LoanID       int64           `json:"loan_id"`
	EntryType    LedgerEntryType `json:"entry_type"`
	Amount       float64         `json:"amount"`
	BalanceAfter float64         `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
