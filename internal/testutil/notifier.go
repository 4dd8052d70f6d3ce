package testutil

import (
	"context"
	"sync"

	"famfin/internal/notify"
)

// CaptureNotifier records emitted events for inspection in tests.
type CaptureNotifier struct {
	mu          sync.Mutex
	Alerts      []notify.BudgetAlertEvent
	Invitations []notify.InvitationEvent
}

// NewCaptureNotifier creates an empty CaptureNotifier.
func NewCaptureNotifier() *CaptureNotifier {
	return &CaptureNotifier{}
}

func (n *CaptureNotifier) BudgetAlert(_ context.Context, event notify.BudgetAlertEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Alerts = append(n.Alerts, event)
}

func (n *CaptureNotifier) InvitationCreated(_ context.Context, event notify.InvitationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Invitations = append(n.Invitations, event)
}

// AlertEvents returns a copy of the captured budget alert events.
func (n *CaptureNotifier) AlertEvents() []notify.BudgetAlertEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.BudgetAlertEvent, len(n.Alerts))
	copy(out, n.Alerts)
	return out
}

// InvitationEvents returns a copy of the captured invitation events.
func (n *CaptureNotifier) InvitationEvents() []notify.InvitationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.InvitationEvent, len(n.Invitations))
	copy(out, n.Invitations)
	return out
}
