package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Areas []SubscriptionArea `gorm:"foreignKey:Endpoint"`
}

// SubscriptionArea links a subscription to a ward area whose bed availability it follows.
type SubscriptionArea struct {
	Endpoint string `gorm:"primaryKey"`
	Area     string `gorm:"primaryKey;size:128"`
}
