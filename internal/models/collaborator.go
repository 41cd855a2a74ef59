package models

import "time"

// CollaboratorStatus is the stored status of a collaboration request.
type CollaboratorStatus string

const (
	// CollaboratorStatusPending indicates a request awaiting the receiver.
	CollaboratorStatusPending CollaboratorStatus = "pending"
	// CollaboratorStatusAccepted indicates both users collaborate.
	CollaboratorStatusAccepted CollaboratorStatus = "accepted"
	// CollaboratorStatusRejected indicates the receiver declined.
	CollaboratorStatusRejected CollaboratorStatus = "rejected"
)

// Collaborator is a collaboration relation between two users. Several rows
// may exist for the same pair; the most recently created one is
// authoritative.
type Collaborator struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	RequesterID uint               `gorm:"not null;index:idx_collaborators_pair" json:"requester_id"`
	ReceiverID  uint               `gorm:"not null;index:idx_collaborators_pair;index" json:"receiver_id"`
	Status      CollaboratorStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt   time.Time          `gorm:"index" json:"created_at"`

	Requester *Profile `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Receiver  *Profile `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

// TableName specifies the table name for GORM
func (Collaborator) TableName() string {
	return "collaborators"
}

// Other returns the id of the participant that is not userID.
func (c *Collaborator) Other(userID uint) uint {
	if c.RequesterID == userID {
		return c.ReceiverID
	}
	return c.RequesterID
}
