package domain

import (
	"context"
	"errors"
	"time"
)

// CreateGroupRequest carries the fields for a new group. Bounds (name length,
// currency format, cycle duration, member capacity) are enforced at the
// transport edge; the service treats them as preconditions.
type CreateGroupRequest struct {
	Name                    string
	Description             string
	ContributionAmountCents int64
	Currency                string
	CycleDurationMonths     int
	MaxMembers              int
	StartDate               *time.Time
}

// UpdateGroupRequest is a partial update. Nil means "not provided"; a pointer
// to the zero value overwrites.
type UpdateGroupRequest struct {
	Name                    *string
	Description             *string
	ContributionAmountCents *int64
	Currency                *string
	CycleDurationMonths     *int
	StartDate               *time.Time
}

// RequestJoinRequest asks for admission to an open group.
type RequestJoinRequest struct {
	GroupID  string
	UserName string
}

// RespondToJoinRequest resolves a pending admission request.
type RespondToJoinRequest struct {
	GroupID  string
	UserID   string
	Approved bool
}

// Service is the group lifecycle engine. The caller identity is read from the
// context (see internal/identity); operations that require the organizer
// compare it against the stored OrganizerID.
type Service interface {
	Create(ctx context.Context, req CreateGroupRequest) (Group, error)
	Get(ctx context.Context, id string) (Group, error)
	List(ctx context.Context) ([]Group, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]Group, error)
	Update(ctx context.Context, id string, req UpdateGroupRequest) (Group, error)
	Delete(ctx context.Context, id string) error
	RequestJoin(ctx context.Context, req RequestJoinRequest) (Group, error)
	RespondToJoin(ctx context.Context, req RespondToJoinRequest) (Group, error)
	AssignNextRecipient(ctx context.Context, id string) (Group, error)
	Close(ctx context.Context, id string) (Group, error)
}

var (
	ErrInvalidID       = errors.New("invalid_group_id")
	ErrInvalidCaller   = errors.New("invalid_caller")
	ErrNotFound        = errors.New("group_not_found")
	ErrNotOrganizer    = errors.New("not_organizer")
	ErrInvalidState    = errors.New("invalid_state")
	ErrStaleGroup      = errors.New("stale_group")
	ErrGroupBusy       = errors.New("group_busy")

	ErrGroupNotUpdatable   = errors.New("group_not_updatable")
	ErrGroupActive         = errors.New("group_active")
	ErrGroupNotActive      = errors.New("group_not_active")
	ErrGroupCompleted      = errors.New("group_already_completed")
	ErrNotAcceptingMembers = errors.New("group_not_accepting_members")
	ErrGroupFull           = errors.New("group_full")
	ErrAlreadyMember       = errors.New("already_member")
	ErrAlreadyPending      = errors.New("already_pending")
	ErrNoPendingRequest    = errors.New("no_pending_request")
	ErrNoEligibleMembers   = errors.New("no_eligible_members")
)

// IsStateError reports whether err belongs to the InvalidState family: the
// operation is well-formed but the group's current status, roster, or
// capacity forbids it.
func IsStateError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrGroupNotUpdatable),
		errors.Is(err, ErrGroupActive),
		errors.Is(err, ErrGroupNotActive),
		errors.Is(err, ErrGroupCompleted),
		errors.Is(err, ErrNotAcceptingMembers),
		errors.Is(err, ErrGroupFull),
		errors.Is(err, ErrAlreadyMember),
		errors.Is(err, ErrAlreadyPending),
		errors.Is(err, ErrNoPendingRequest),
		errors.Is(err, ErrNoEligibleMembers):
		return true
	default:
		return false
	}
}
