// Package domain contains the savings group aggregate and its lifecycle contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// GroupStatus represents lifecycle states for a savings group.
type GroupStatus string

const (
	// GroupStatusOpen accepts new members; cycles have not started.
	GroupStatusOpen GroupStatus = "OPEN"
	// GroupStatusActive has started cycles and no longer accepts members.
	GroupStatusActive GroupStatus = "ACTIVE"
	// GroupStatusCompleted has paid out every cycle.
	GroupStatusCompleted GroupStatus = "COMPLETED"
	// GroupStatusClosed was terminated before completion.
	GroupStatusClosed GroupStatus = "CLOSED"
)

// MemberStatus represents a member's standing within a group.
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "ACTIVE"
	MemberStatusInactive MemberStatus = "INACTIVE"
)

// Group is the aggregate root for one rotating savings circle. The member
// roster and pending queue are stored as JSON columns so every operation is a
// single-record write.
type Group struct {
	ID                      snowflake.ID                    `gorm:"primaryKey" json:"id"`
	Name                    string                          `gorm:"not null" json:"name"`
	Description             string                          `gorm:"type:text" json:"description,omitempty"`
	OrganizerID             string                          `gorm:"not null;index" json:"organizer_id"`
	ContributionAmountCents int64                           `gorm:"not null" json:"contribution_amount_cents"`
	Currency                string                          `gorm:"type:text;not null" json:"currency"`
	CycleDurationMonths     int                             `gorm:"not null" json:"cycle_duration_months"`
	MaxMembers              int                             `gorm:"not null" json:"max_members"`
	Status                  GroupStatus                     `gorm:"type:text;not null;index" json:"status"`
	Members                 datatypes.JSONSlice[GroupMember] `gorm:"not null" json:"members"`
	PendingMemberIDs        datatypes.JSONSlice[string]     `gorm:"not null" json:"pending_member_ids"`
	PendingNames            datatypes.JSONMap               `gorm:"not null;default:'{}'" json:"-"`
	CurrentCycle            int                             `gorm:"not null" json:"current_cycle"`
	TotalCycles             int                             `gorm:"not null" json:"total_cycles"`
	CurrentRecipientID      string                          `gorm:"type:text" json:"current_recipient_id,omitempty"`
	StartDate               *time.Time                      `gorm:"" json:"start_date,omitempty"`
	EndDate                 *time.Time                      `gorm:"" json:"end_date,omitempty"`
	Version                 int64                           `gorm:"not null;default:0" json:"-"`
	CreatedAt               time.Time                       `gorm:"not null" json:"created_at"`
	UpdatedAt               time.Time                       `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Group) TableName() string { return "savings_groups" }

// GroupMember is one participant in the rotation. Members are appended in
// join order and never removed; the roster order is the rotation order.
type GroupMember struct {
	UserID               string       `json:"user_id"`
	Name                 string       `json:"name,omitempty"`
	JoinedAt             time.Time    `json:"joined_at"`
	Status               MemberStatus `json:"status"`
	CyclesReceived       []int        `json:"cycles_received"`
	LastContributionDate *time.Time   `json:"last_contribution_date,omitempty"`
}

// NewGroup builds an OPEN group with the organizer enrolled as the first
// member. Collections are always materialized, never nil.
func NewGroup(id snowflake.ID, organizerID string, now time.Time) *Group {
	return &Group{
		ID:               id,
		OrganizerID:      organizerID,
		Status:           GroupStatusOpen,
		Members:          datatypes.NewJSONSlice([]GroupMember{NewGroupMember(organizerID, "", now)}),
		PendingMemberIDs: datatypes.NewJSONSlice([]string{}),
		PendingNames:     datatypes.JSONMap{},
		CurrentCycle:     0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// NewGroupMember builds an ACTIVE member with an empty payout history.
func NewGroupMember(userID, name string, joinedAt time.Time) GroupMember {
	return GroupMember{
		UserID:         userID,
		Name:           name,
		JoinedAt:       joinedAt,
		Status:         MemberStatusActive,
		CyclesReceived: []int{},
	}
}

// IsOpen reports whether the group still accepts members.
func (g *Group) IsOpen() bool { return g.Status == GroupStatusOpen }

// IsFull reports whether the roster reached capacity.
func (g *Group) IsFull() bool { return len(g.Members) >= g.MaxMembers }

// HasMember reports whether userID is on the roster.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// HasPendingMember reports whether userID awaits an organizer decision.
func (g *Group) HasPendingMember(userID string) bool {
	for _, id := range g.PendingMemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// HasReceived reports whether the member was already paid out in the given cycle.
func (m GroupMember) HasReceived(cycle int) bool {
	for _, c := range m.CyclesReceived {
		if c == cycle {
			return true
		}
	}
	return false
}
