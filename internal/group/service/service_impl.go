package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/savingsapp/groupservice/internal/clock"
	"github.com/savingsapp/groupservice/internal/group/domain"
	"github.com/savingsapp/groupservice/internal/identity"
	"github.com/savingsapp/groupservice/internal/lock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// lockTTL bounds how long a crashed writer can hold a group mutex.
const lockTTL = 5 * time.Second

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	locker *lock.Locker
}

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Locker *lock.Locker `optional:"true"`
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("group.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		locker: p.Locker,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateGroupRequest) (domain.Group, error) {
	callerID, ok := identity.UserIDFromContext(ctx)
	if !ok {
		return domain.Group{}, domain.ErrInvalidCaller
	}

	now := s.clock.Now()
	group := domain.NewGroup(s.genID.Generate(), callerID, now)
	group.Name = strings.TrimSpace(req.Name)
	group.Description = strings.TrimSpace(req.Description)
	group.ContributionAmountCents = req.ContributionAmountCents
	group.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	group.CycleDurationMonths = req.CycleDurationMonths
	group.MaxMembers = req.MaxMembers
	group.TotalCycles = req.MaxMembers
	group.StartDate = req.StartDate

	if err := s.repo.Insert(ctx, s.db, group); err != nil {
		return domain.Group{}, err
	}

	s.log.Info("group created",
		zap.String("group_id", group.ID.String()),
		zap.String("organizer_id", callerID),
		zap.Int("max_members", group.MaxMembers),
	)
	return *group, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Group, error) {
	groupID, err := s.parseID(id)
	if err != nil {
		return domain.Group{}, err
	}

	group, err := s.repo.FindByID(ctx, s.db, groupID)
	if err != nil {
		return domain.Group{}, err
	}
	if group == nil {
		return domain.Group{}, domain.ErrNotFound
	}
	return *group, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Group, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) ListByOrganizer(ctx context.Context, organizerID string) ([]domain.Group, error) {
	organizerID = strings.TrimSpace(organizerID)
	if organizerID == "" {
		return nil, domain.ErrInvalidCaller
	}
	return s.repo.ListByOrganizer(ctx, s.db, organizerID)
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateGroupRequest) (domain.Group, error) {
	return s.mutate(ctx, id, func(ctx context.Context, group *domain.Group) error {
		if err := s.requireOrganizer(ctx, group); err != nil {
			return err
		}
		if err := domain.EnsureAllowed(domain.OpUpdate, group.Status); err != nil {
			return err
		}

		if req.Name != nil {
			group.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			group.Description = strings.TrimSpace(*req.Description)
		}
		if req.ContributionAmountCents != nil {
			group.ContributionAmountCents = *req.ContributionAmountCents
		}
		if req.Currency != nil {
			group.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
		}
		if req.CycleDurationMonths != nil {
			group.CycleDurationMonths = *req.CycleDurationMonths
		}
		if req.StartDate != nil {
			group.StartDate = req.StartDate
		}
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	groupID, err := s.parseID(id)
	if err != nil {
		return err
	}

	unlock, err := s.acquire(ctx, groupID)
	if err != nil {
		return err
	}
	defer unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.repo.FindByID(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return domain.ErrNotFound
		}
		if err := s.requireOrganizer(ctx, group); err != nil {
			return err
		}
		if err := domain.EnsureAllowed(domain.OpDelete, group.Status); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, group); err != nil {
			return err
		}

		s.log.Info("group deleted", zap.String("group_id", group.ID.String()))
		return nil
	})
}

func (s *Service) RequestJoin(ctx context.Context, req domain.RequestJoinRequest) (domain.Group, error) {
	callerID, ok := identity.UserIDFromContext(ctx)
	if !ok {
		return domain.Group{}, domain.ErrInvalidCaller
	}

	return s.mutate(ctx, req.GroupID, func(ctx context.Context, group *domain.Group) error {
		if err := domain.EnsureAllowed(domain.OpRequestJoin, group.Status); err != nil {
			return err
		}
		if group.IsFull() {
			return domain.ErrGroupFull
		}
		if group.HasMember(callerID) {
			return domain.ErrAlreadyMember
		}
		if group.HasPendingMember(callerID) {
			return domain.ErrAlreadyPending
		}

		group.PendingMemberIDs = append(group.PendingMemberIDs, callerID)
		if name := strings.TrimSpace(req.UserName); name != "" {
			group.PendingNames[callerID] = name
		}
		return nil
	})
}

func (s *Service) RespondToJoin(ctx context.Context, req domain.RespondToJoinRequest) (domain.Group, error) {
	userID := strings.TrimSpace(req.UserID)

	return s.mutate(ctx, req.GroupID, func(ctx context.Context, group *domain.Group) error {
		if err := s.requireOrganizer(ctx, group); err != nil {
			return err
		}
		if err := domain.EnsureAllowed(domain.OpRespondToJoin, group.Status); err != nil {
			return err
		}
		if !group.HasPendingMember(userID) {
			return domain.ErrNoPendingRequest
		}

		// The request is consumed either way; a rejection leaves no trace.
		name := s.takePending(group, userID)

		if !req.Approved {
			return nil
		}

		// Capacity may have filled between request and response.
		if group.IsFull() {
			return domain.ErrGroupFull
		}
		group.Members = append(group.Members, domain.NewGroupMember(userID, name, s.clock.Now()))
		return nil
	})
}

// AssignNextRecipient advances the rotation. A group still OPEN is activated
// on the first call; after that, the first ACTIVE member in roster order who
// has not been paid this cycle receives the pool. When everyone has received,
// the cycle rolls over, and when the last cycle is exhausted the group
// completes without assigning.
func (s *Service) AssignNextRecipient(ctx context.Context, id string) (domain.Group, error) {
	return s.mutate(ctx, id, func(ctx context.Context, group *domain.Group) error {
		if err := s.requireOrganizer(ctx, group); err != nil {
			return err
		}
		if err := domain.EnsureAllowed(domain.OpAssignRecipient, group.Status); err != nil {
			return err
		}

		if group.Status == domain.GroupStatusOpen {
			s.activate(group)
		}

		eligible := eligibleMembers(group)
		if len(eligible) == 0 {
			group.CurrentCycle++
			if group.CurrentCycle > group.TotalCycles {
				group.Status = domain.GroupStatusCompleted
				s.log.Info("group completed",
					zap.String("group_id", group.ID.String()),
					zap.Int("total_cycles", group.TotalCycles),
				)
				return nil
			}
			// Fresh cycle: every active member is eligible again.
			eligible = activeMembers(group)
		}

		if len(eligible) == 0 {
			return domain.ErrNoEligibleMembers
		}

		selected := eligible[0]
		group.Members[selected].CyclesReceived = append(group.Members[selected].CyclesReceived, group.CurrentCycle)
		group.CurrentRecipientID = group.Members[selected].UserID

		s.log.Info("recipient assigned",
			zap.String("group_id", group.ID.String()),
			zap.String("recipient_id", group.CurrentRecipientID),
			zap.Int("cycle", group.CurrentCycle),
		)
		return nil
	})
}

func (s *Service) Close(ctx context.Context, id string) (domain.Group, error) {
	return s.mutate(ctx, id, func(ctx context.Context, group *domain.Group) error {
		if err := s.requireOrganizer(ctx, group); err != nil {
			return err
		}
		if err := domain.EnsureAllowed(domain.OpClose, group.Status); err != nil {
			return err
		}

		group.Status = domain.GroupStatusClosed
		s.log.Info("group closed", zap.String("group_id", group.ID.String()))
		return nil
	})
}

// activate starts the rotation: cycle one begins, the start date defaults to
// now, and the end date spans one cycle duration per enrolled member.
func (s *Service) activate(group *domain.Group) {
	group.Status = domain.GroupStatusActive
	group.CurrentCycle = 1

	if group.StartDate == nil {
		now := s.clock.Now()
		group.StartDate = &now
	}
	endDate := group.StartDate.AddDate(0, group.CycleDurationMonths*len(group.Members), 0)
	group.EndDate = &endDate

	s.log.Info("group activated",
		zap.String("group_id", group.ID.String()),
		zap.Int("members", len(group.Members)),
		zap.Timep("end_date", group.EndDate),
	)
}

// eligibleMembers returns roster indexes of ACTIVE members not yet paid in
// the current cycle, preserving roster order.
func eligibleMembers(group *domain.Group) []int {
	var out []int
	for i, m := range group.Members {
		if m.Status != domain.MemberStatusActive {
			continue
		}
		if m.HasReceived(group.CurrentCycle) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// activeMembers returns roster indexes of all ACTIVE members.
func activeMembers(group *domain.Group) []int {
	var out []int
	for i, m := range group.Members {
		if m.Status == domain.MemberStatusActive {
			out = append(out, i)
		}
	}
	return out
}

// mutate runs one read-modify-write cycle against a single group record. The
// redis mutex (when configured) serializes writers up front; the version
// check on save catches anything that slipped past it.
func (s *Service) mutate(ctx context.Context, id string, fn func(ctx context.Context, group *domain.Group) error) (domain.Group, error) {
	groupID, err := s.parseID(id)
	if err != nil {
		return domain.Group{}, err
	}

	unlock, err := s.acquire(ctx, groupID)
	if err != nil {
		return domain.Group{}, err
	}
	defer unlock()

	var out domain.Group
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.repo.FindByID(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return domain.ErrNotFound
		}
		if err := fn(ctx, group); err != nil {
			return err
		}
		group.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, group); err != nil {
			return err
		}
		out = *group
		return nil
	})
	if err != nil {
		return domain.Group{}, err
	}
	return out, nil
}

// acquire takes the per-group mutex when a locker is configured. The returned
// release func is always safe to call.
func (s *Service) acquire(ctx context.Context, id snowflake.ID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("group:lock:%s", id.String())
	token, ok, err := s.locker.TryLock(ctx, key, lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrGroupBusy
	}
	return func() {
		if err := s.locker.Release(ctx, key, token); err != nil {
			s.log.Warn("group lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *Service) requireOrganizer(ctx context.Context, group *domain.Group) error {
	callerID, ok := identity.UserIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidCaller
	}
	if group.OrganizerID != callerID {
		return domain.ErrNotOrganizer
	}
	return nil
}

// takePending removes userID from the pending queue and returns the display
// name captured with the join request, if any.
func (s *Service) takePending(group *domain.Group, userID string) string {
	pending := group.PendingMemberIDs[:0]
	for _, id := range group.PendingMemberIDs {
		if id != userID {
			pending = append(pending, id)
		}
	}
	group.PendingMemberIDs = pending

	name := ""
	if raw, ok := group.PendingNames[userID]; ok {
		if v, ok := raw.(string); ok {
			name = v
		}
		delete(group.PendingNames, userID)
	}
	return name
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
