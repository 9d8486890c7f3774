// model/reservation.go
package model

import "time"

// Reservation is a hold on a specific BookInstance for a user. An instance
// carries at most one reservation at a time; a consumed or canceled
// reservation is deleted, never kept as history.
type Reservation struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	BookInstanceID int64      `json:"book_instance_id"`
	ReservedAt     time.Time  `json:"reserved_at"`
	DueDate        time.Time  `json:"due_date"`
	ReturnedAt     *time.Time `json:"returned_at,omitempty"`
}
