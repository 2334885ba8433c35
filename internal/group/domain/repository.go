package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists group aggregates. Update performs an optimistic version
// check: it only writes when the stored version matches the loaded one, and
// reports ErrStaleGroup otherwise.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, group *Group) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Group, error)
	List(ctx context.Context, db *gorm.DB) ([]Group, error)
	ListByOrganizer(ctx context.Context, db *gorm.DB, organizerID string) ([]Group, error)
	Update(ctx context.Context, db *gorm.DB, group *Group) error
	Delete(ctx context.Context, db *gorm.DB, group *Group) error
}
