package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/savingsapp/groupservice/internal/group/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, group *domain.Group) error {
	return db.WithContext(ctx).Create(group).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Group, error) {
	var group domain.Group
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Group, error) {
	var groups []domain.Group
	err := db.WithContext(ctx).
		Model(&domain.Group{}).
		Order("created_at desc, id desc").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repo) ListByOrganizer(ctx context.Context, db *gorm.DB, organizerID string) ([]domain.Group, error) {
	var groups []domain.Group
	err := db.WithContext(ctx).
		Model(&domain.Group{}).
		Where("organizer_id = ?", organizerID).
		Order("created_at desc, id desc").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// Update writes the whole aggregate guarded by the version loaded with it.
// Zero rows affected means another writer got there first.
func (r *repo) Update(ctx context.Context, db *gorm.DB, group *domain.Group) error {
	loaded := group.Version
	group.Version = loaded + 1

	res := db.WithContext(ctx).
		Model(&domain.Group{}).
		Where("id = ? AND version = ?", group.ID, loaded).
		Select("*").
		Omit("id", "created_at").
		Updates(group)
	if res.Error != nil {
		group.Version = loaded
		return res.Error
	}
	if res.RowsAffected == 0 {
		group.Version = loaded
		return domain.ErrStaleGroup
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, group *domain.Group) error {
	return db.WithContext(ctx).
		Where("id = ?", group.ID).
		Delete(&domain.Group{}).Error
}
