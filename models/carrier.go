package models

import (
	"context"
	"errors"
	"strings"

	"github.com/coverlane/agency_backend/config"
	"gorm.io/gorm"
)

// Carrier is the registry row for one external RPA automation bot.
// WebhookURL, when set, overrides the env-configured endpoint.
type Carrier struct {
	ID         uint   `gorm:"primary_key" json:"id"`
	Code       string `gorm:"uniqueIndex;size:30;not null" json:"code"`
	Name       string `gorm:"size:100;not null" json:"name"`
	WebhookURL string `gorm:"size:500" json:"webhook_url"`
	IsActive   *bool  `gorm:"not null;default:true" json:"is_active"`
}

func GetCarrierByCode(ctx context.Context, code string) (*Carrier, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, errors.New("carrier code is required")
	}

	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}
	var carrier Carrier
	err := db.WithContext(ctx).Where("code = ?", code).Take(&carrier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &carrier, nil
}

// ResolveCarrierWebhookURL prefers the registry override, then env defaults.
// A missing carrier row is not an error: env-only deployments are supported.
func ResolveCarrierWebhookURL(ctx context.Context, code string) string {
	carrier, err := GetCarrierByCode(ctx, code)
	if err == nil && carrier != nil && strings.TrimSpace(carrier.WebhookURL) != "" {
		return carrier.WebhookURL
	}
	return config.CarrierWebhookURL(code)
}
