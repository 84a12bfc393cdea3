package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("not found")

// Store wraps the campaign database.
type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Campaign{}, &CampaignMember{}, &Character{}, &Monster{})
}

func (s *Store) Campaign(ctx context.Context, id uint) (*Campaign, error) {
	var c Campaign
	err := s.db.WithContext(ctx).Preload("Members").First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("campaign %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CampaignCharacters(ctx context.Context, campaignID uint) ([]Character, error) {
	var chars []Character
	err := s.db.WithContext(ctx).Where("campaign_id = ?", campaignID).Order("name").Find(&chars).Error
	return chars, err
}

func (s *Store) Character(ctx context.Context, id uint) (*Character, error) {
	var c Character
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("character %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) Monsters(ctx context.Context) ([]Monster, error) {
	var monsters []Monster
	err := s.db.WithContext(ctx).Order("name").Find(&monsters).Error
	return monsters, err
}

// IsMember reports whether a user belongs to a campaign, DM included.
func (s *Store) IsMember(ctx context.Context, campaignID uint, userID string) (bool, error) {
	var c Campaign
	err := s.db.WithContext(ctx).First(&c, campaignID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("campaign %d: %w", campaignID, ErrNotFound)
	}
	if err != nil {
		return false, err
	}
	if c.DMUserID == userID {
		return true, nil
	}
	var count int64
	err = s.db.WithContext(ctx).Model(&CampaignMember{}).
		Where("campaign_id = ? AND user_id = ?", campaignID, userID).
		Count(&count).Error
	return count > 0, err
}
