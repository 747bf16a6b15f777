package ports

import "github.com/google/uuid"

// Relay is the capability the workflow uses to push events at connected
// clients. Delivery is best effort, at most once, and reaches only sessions
// connected right now; nothing is queued for offline users.
type Relay interface {
	// Broadcast sends a named event to every connected session.
	Broadcast(event string, payload any)
	// EmitToUser sends a named event to all sessions joined as userID.
	EmitToUser(userID uuid.UUID, event string, payload any)
}

// Relay event names pushed to clients.
const (
	RelayEventNewService    = "new service"
	RelayEventLedgerUpdated = "ledger updated"
	RelayEventChatMessage   = "message received"
)
