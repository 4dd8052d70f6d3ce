package models

import "time"

// InvitationStatus represents the lifecycle state of an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
	InvitationRevoked  InvitationStatus = "revoked"
)

// IsTerminal reports whether the status permits no further transitions.
func (s InvitationStatus) IsTerminal() bool {
	return s != InvitationPending
}

// Invitation is a time-bounded offer of family membership, addressed to an
// email and redeemed with an unguessable token.
type Invitation struct {
	Base
	FamilyID  uint             `gorm:"not null;index" json:"family_id"`
	InviterID uint             `gorm:"not null" json:"inviter_id"`
	Email     string           `gorm:"not null;index" json:"email"`
	Role      Role             `gorm:"not null" json:"role"`
	Token     string           `gorm:"uniqueIndex;not null" json:"-"`
	Status    InvitationStatus `gorm:"not null;default:pending" json:"status"`
	Message   string           `json:"message,omitempty"`
	ExpiresAt time.Time        `gorm:"not null" json:"expires_at"`

	Family  Family `gorm:"foreignKey:FamilyID" json:"family,omitempty"`
	Inviter User   `gorm:"foreignKey:InviterID" json:"inviter,omitempty"`
}

// IsExpired reports whether the invitation's TTL has passed at the given time.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// EffectiveStatus returns the status as of now. A stored PENDING row whose
// expiry has passed reads as EXPIRED without being written back; the
// background sweep persists it later.
func (i *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationPending && i.IsExpired(now) {
		return InvitationExpired
	}
	return i.Status
}
