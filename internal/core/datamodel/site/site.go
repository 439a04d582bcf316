package site

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultTimezone = "Asia/Karachi"
	DefaultColor    = "#15a362"
	DefaultMessage  = "We are currently performing scheduled maintenance. We will be back online shortly. Thank you for your patience."
)

type Site struct {
	ID        uuid.UUID `gorm:"primaryKey;size:36" json:"id"`
	Domain    string    `gorm:"uniqueIndex;size:100;not null" json:"domain"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Site) TableName() string {
	return "sites"
}

func (s *Site) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s Site) String() string {
	return s.Domain
}

type SiteSettings struct {
	ID                uuid.UUID `gorm:"primaryKey;size:36" json:"id"`
	SiteID            uuid.UUID `gorm:"uniqueIndex;size:36;not null" json:"site_id"`
	Site              Site      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Logo              string    `json:"logo"`
	Favicon           string    `json:"favicon"`
	Timezone          string    `gorm:"size:50;not null" json:"timezone"`
	Color             string    `gorm:"size:7" json:"color"`
	UnderConstruction bool      `json:"under_construction"`
	UserBar           bool      `json:"user_bar"`
	UserLogs          bool      `json:"user_logs"`
	Message           string    `json:"message"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (SiteSettings) TableName() string {
	return "site_settings"
}

func (s *SiteSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s SiteSettings) String() string {
	return "Site Settings"
}

// MaintenanceMessage falls back to the default text when none was written.
func (s SiteSettings) MaintenanceMessage() string {
	if s.Message == "" {
		return DefaultMessage
	}
	return s.Message
}

func NewSiteSettings(siteID uuid.UUID) *SiteSettings {
	return &SiteSettings{
		SiteID:   siteID,
		Timezone: DefaultTimezone,
		Color:    DefaultColor,
		UserBar:  true,
		UserLogs: true,
		Message:  DefaultMessage,
	}
}

type SocialSettings struct {
	ID        uuid.UUID `gorm:"primaryKey;size:36" json:"id"`
	SiteID    uuid.UUID `gorm:"uniqueIndex;size:36;not null" json:"site_id"`
	Site      Site      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Facebook  string    `gorm:"size:200" json:"facebook"`
	Twitter   string    `gorm:"size:200" json:"twitter"`
	Instagram string    `gorm:"size:200" json:"instagram"`
	Youtube   string    `gorm:"size:200" json:"youtube"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SocialSettings) TableName() string {
	return "social_settings"
}

func (s *SocialSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s SocialSettings) String() string {
	return "Social Settings"
}

type AuthSettings struct {
	ID                    uuid.UUID `gorm:"primaryKey;size:36" json:"id"`
	SiteID                uuid.UUID `gorm:"uniqueIndex;size:36;not null" json:"site_id"`
	Site                  Site      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ActivationDays        int       `json:"activation_days"`
	RegistrationAutoLogin bool      `json:"registration_auto_login"`
	SendActivationEmail   bool      `json:"send_activation_email"`
	RegistrationOpen      bool      `json:"registration_open"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (AuthSettings) TableName() string {
	return "auth_settings"
}

func (s *AuthSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s AuthSettings) String() string {
	return "Authentication Settings"
}

func NewAuthSettings(siteID uuid.UUID) *AuthSettings {
	return &AuthSettings{
		SiteID:              siteID,
		ActivationDays:      7,
		SendActivationEmail: true,
		RegistrationOpen:    true,
	}
}
