// Package seed provides optional demo data for local development.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/savingsapp/groupservice/internal/group/domain"
	"gorm.io/gorm"
)

const (
	demoOrganizerID = "demo-organizer"
	demoGroupName   = "Demo Savings Circle"
)

// EnsureDemoGroup seeds one open savings group so a fresh install has
// something to poke at. Idempotent: a second startup finds the group and
// does nothing.
func EnsureDemoGroup(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&domain.Group{}).
			Where("organizer_id = ?", demoOrganizerID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		group := domain.NewGroup(node.Generate(), demoOrganizerID, now)
		group.Name = demoGroupName
		group.Description = "Seeded group for local development"
		group.ContributionAmountCents = 50_00
		group.Currency = "USD"
		group.CycleDurationMonths = 1
		group.MaxMembers = 5
		group.TotalCycles = 5

		return tx.Create(group).Error
	})
}
