package domain

// Operation names a state-changing action on a group. The lifecycle rules live
// in one table instead of per-method status checks.
type Operation string

const (
	OpUpdate          Operation = "update"
	OpDelete          Operation = "delete"
	OpRequestJoin     Operation = "request_join"
	OpRespondToJoin   Operation = "respond_to_join"
	OpAssignRecipient Operation = "assign_recipient"
	OpClose           Operation = "close"
)

// allowedStates maps each operation to the statuses it may run from.
// COMPLETED and CLOSED are terminal: only delete remains legal there.
var allowedStates = map[Operation]map[GroupStatus]bool{
	OpUpdate: {
		GroupStatusOpen: true,
	},
	OpDelete: {
		GroupStatusOpen:      true,
		GroupStatusCompleted: true,
		GroupStatusClosed:    true,
	},
	OpRequestJoin: {
		GroupStatusOpen: true,
	},
	// A pending entry can only exist for a group that was OPEN when the
	// request landed, but the group may have activated since. The decision
	// stays answerable in every state; the pending set is the real gate.
	OpRespondToJoin: {
		GroupStatusOpen:      true,
		GroupStatusActive:    true,
		GroupStatusCompleted: true,
		GroupStatusClosed:    true,
	},
	OpAssignRecipient: {
		GroupStatusOpen:   true,
		GroupStatusActive: true,
	},
	OpClose: {
		GroupStatusOpen:   true,
		GroupStatusActive: true,
	},
}

// opErrors maps a rejected operation to the reason reported to the caller.
var opErrors = map[Operation]error{
	OpUpdate:          ErrGroupNotUpdatable,
	OpDelete:          ErrGroupActive,
	OpRequestJoin:     ErrNotAcceptingMembers,
	OpRespondToJoin:   ErrNotAcceptingMembers,
	OpAssignRecipient: ErrGroupNotActive,
	OpClose:           ErrGroupCompleted,
}

// EnsureAllowed validates that op may run against the given status.
func EnsureAllowed(op Operation, status GroupStatus) error {
	states, ok := allowedStates[op]
	if !ok || !states[status] {
		if err, ok := opErrors[op]; ok {
			return err
		}
		return ErrInvalidState
	}
	return nil
}
