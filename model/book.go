// model/book.go
package model

type Book struct {
	ID                 int64  `json:"id"`
	Title              string `json:"title"`
	Author             string `json:"author"`
	Category           string `json:"category"`
	AvailableInstances int64  `json:"available_instances"`
}

type InstanceStatus string

const (
	InstanceAvailable InstanceStatus = "AVAILABLE"
	InstanceActive    InstanceStatus = "ACTIVE"
	InstanceDamaged   InstanceStatus = "DAMAGED"
	InstanceLost      InstanceStatus = "LOST"
)

// BookInstance is one physical copy of a Book. A copy is loanable while its
// status is AVAILABLE or DAMAGED and it carries neither an open reservation
// nor an open loan.
type BookInstance struct {
	ID     int64          `json:"id"`
	BookID int64          `json:"book_id"`
	Status InstanceStatus `json:"status"`
}

func IsValidInstanceStatus(s string) bool {
	switch InstanceStatus(s) {
	case InstanceAvailable, InstanceActive, InstanceDamaged, InstanceLost:
		return true
	}
	return false
}
