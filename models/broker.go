package models

import "time"

const (
	BrokerConnected    = "connected"
	BrokerDisconnected = "disconnected"
)

// Broker is a catalog entry for a supported brokerage.
type Broker struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	Code         string `gorm:"size:30;uniqueIndex;not null" json:"code" yaml:"code"`
	Name         string `gorm:"size:100;not null" json:"name" yaml:"name"`
	RequiresTOTP bool   `gorm:"default:false" json:"requires_totp" yaml:"requires_totp"`
}

// BrokerConnection holds a user's credentials for one broker. APISecret is
// only ever stored sealed.
type BrokerConnection struct {
	ID             uint       `gorm:"primaryKey" json:"-"`
	PublicID       string     `gorm:"size:32;uniqueIndex" json:"id"`
	UserID         uint       `gorm:"not null;uniqueIndex:idx_broker_user_code" json:"-"`
	BrokerCode     string     `gorm:"size:30;not null;uniqueIndex:idx_broker_user_code" json:"broker"`
	ClientID       string     `gorm:"size:100" json:"client_id"`
	APIKey         string     `gorm:"size:200" json:"-"`
	MaskedAPIKey   string     `gorm:"-" json:"api_key"`
	SecretSealed   []byte     `json:"-"`
	Status         string     `gorm:"size:20;default:disconnected" json:"status"`
	LastVerifiedAt *time.Time `json:"last_verified_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (b *BrokerConnection) Connected() bool {
	return b.Status == BrokerConnected
}
