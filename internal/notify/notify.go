// Package notify carries events out of the core to whatever delivers
// them (email, push, chat). Emission is fire-and-forget everywhere: a
// broken notifier must never fail the operation that produced the event.
package notify

import (
	"context"
	"time"

	"famfin/internal/logger"
	"famfin/internal/models"
)

// BudgetAlertEvent is emitted when a budget first crosses its alert
// threshold or its limit within a window.
type BudgetAlertEvent struct {
	BudgetID        uint             `json:"budget_id"`
	UserID          *uint            `json:"user_id,omitempty"`
	FamilyID        *uint            `json:"family_id,omitempty"`
	Kind            models.AlertKind `json:"kind"`
	SpentPercentage float64          `json:"spent_percentage"`
	WindowStart     time.Time        `json:"window_start"`
}

// InvitationEvent is emitted when a membership invitation is created,
// for an external channel to deliver to the invitee.
type InvitationEvent struct {
	InvitationID uint      `json:"invitation_id"`
	FamilyID     uint      `json:"family_id"`
	FamilyName   string    `json:"family_name"`
	Email        string    `json:"email"`
	Token        string    `json:"token"`
	Message      string    `json:"message,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Notifier is the outbound event contract consumed by the budget
// evaluator and the invitation workflow.
type Notifier interface {
	BudgetAlert(ctx context.Context, event BudgetAlertEvent)
	InvitationCreated(ctx context.Context, event InvitationEvent)
}

// LogNotifier writes events to the application log. It serves
// deployments without a broker and is the default in tests.
type LogNotifier struct{}

// NewLogNotifier creates a Notifier that only logs.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// BudgetAlert logs a budget alert event.
func (n *LogNotifier) BudgetAlert(_ context.Context, event BudgetAlertEvent) {
	logger.Get().Infow("budget alert",
		"budget_id", event.BudgetID,
		"kind", event.Kind,
		"spent_percentage", event.SpentPercentage,
		"window_start", event.WindowStart,
	)
}

// InvitationCreated logs an invitation event. The token is deliberately
// omitted from logs.
func (n *LogNotifier) InvitationCreated(_ context.Context, event InvitationEvent) {
	logger.Get().Infow("invitation created",
		"invitation_id", event.InvitationID,
		"family_id", event.FamilyID,
		"email", event.Email,
		"expires_at", event.ExpiresAt,
	)
}
