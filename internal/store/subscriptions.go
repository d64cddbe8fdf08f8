package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ward-status-backend/internal/model"
)

// SaveSubscription creates or replaces a push subscription and the areas it follows.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription, areas []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Omit("Areas").Create(sub).Error; err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}

		if err := tx.Where("endpoint = ?", sub.Endpoint).Delete(&model.SubscriptionArea{}).Error; err != nil {
			return fmt.Errorf("failed to clear subscription areas: %w", err)
		}

		seen := make(map[string]struct{}, len(areas))
		sub.Areas = sub.Areas[:0]
		for _, a := range areas {
			a = strings.TrimSpace(a)
			if _, ok := seen[a]; ok || a == "" {
				continue
			}
			seen[a] = struct{}{}
			sub.Areas = append(sub.Areas, model.SubscriptionArea{Endpoint: sub.Endpoint, Area: a})
		}
		if len(sub.Areas) == 0 {
			return nil
		}
		if err := tx.Create(&sub.Areas).Error; err != nil {
			return fmt.Errorf("failed to save subscription areas: %w", err)
		}
		return nil
	})
}

// GetSubscription loads a subscription with its areas.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Areas").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, notFound(err, "subscription %s", endpoint)
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription and its areas.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.SubscriptionArea{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscription areas: %w", err)
		}
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
		return nil
	})
}

// SubscriptionsForArea returns the subscriptions following an area.
func (s *gormStore) SubscriptionsForArea(ctx context.Context, area string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_areas sa ON sa.endpoint = push_subscriptions.endpoint").
		Where("sa.area = ?", area).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for area %q: %w", area, err)
	}
	return subs, nil
}
