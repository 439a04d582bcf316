package site

import (
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/core/common/validation"
	siteDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/site"
)

type SettingsDTO struct {
	DisplayName       string `schema:"display_name"`
	DomainName        string `schema:"domain_name"`
	Timezone          string `schema:"timezone"`
	Color             string `schema:"color"`
	UnderConstruction bool   `schema:"under_construction"`
	UserBar           bool   `schema:"user_bar"`
	UserLogs          bool   `schema:"user_logs"`
	Message           string `schema:"message"`
}

func (d SettingsDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("display_name", d.DisplayName).Required().MaxLength(50)
	v.Field("domain_name", d.DomainName).Required().MaxLength(100).Custom(func(value interface{}) *internal.AppError {
		if strings.ContainsAny(value.(string), " \t\r\n") {
			return internal.NewValidationFieldError("domain_name", "The domain name cannot contain any spaces or tabs.", internal.ErrCodeInvalidFormat)
		}
		return nil
	})
	v.Field("timezone", d.Timezone).Required().MaxLength(50).Custom(func(value interface{}) *internal.AppError {
		if _, err := time.LoadLocation(value.(string)); err != nil {
			return internal.NewValidationFieldError("timezone", "Select a valid timezone.", internal.ErrCodeInvalidFormat)
		}
		return nil
	})
	v.Field("color", d.Color).Pattern(validation.HexColor(), "Enter a valid color.")
	if d.UnderConstruction && strings.TrimSpace(d.Message) == "" {
		v.AddError("message", "Please write under construction message.", internal.ErrCodeRequired)
	}
	return v.Validate()
}

func (d SettingsDTO) Apply(site *siteDatamodel.Site, s *siteDatamodel.SiteSettings) {
	site.Name = strings.TrimSpace(d.DisplayName)
	site.Domain = strings.ToLower(strings.TrimSpace(d.DomainName))
	s.Timezone = strings.TrimSpace(d.Timezone)
	s.Color = strings.TrimSpace(d.Color)
	s.UnderConstruction = d.UnderConstruction
	s.UserBar = d.UserBar
	s.UserLogs = d.UserLogs
	s.Message = strings.TrimSpace(d.Message)
}

type SocialDTO struct {
	Facebook  string `schema:"facebook"`
	Twitter   string `schema:"twitter"`
	Instagram string `schema:"instagram"`
	Youtube   string `schema:"youtube"`
}

func (d SocialDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("facebook", d.Facebook).MaxLength(200).URL()
	v.Field("twitter", d.Twitter).MaxLength(200).URL()
	v.Field("instagram", d.Instagram).MaxLength(200).URL()
	v.Field("youtube", d.Youtube).MaxLength(200).URL()
	return v.Validate()
}

func (d SocialDTO) Apply(s *siteDatamodel.SocialSettings) {
	s.Facebook = strings.TrimSpace(d.Facebook)
	s.Twitter = strings.TrimSpace(d.Twitter)
	s.Instagram = strings.TrimSpace(d.Instagram)
	s.Youtube = strings.TrimSpace(d.Youtube)
}

type AuthDTO struct {
	ActivationDays        string `schema:"activation_days"`
	RegistrationAutoLogin bool   `schema:"registration_auto_login"`
	SendActivationEmail   bool   `schema:"send_activation_email"`
	RegistrationOpen      bool   `schema:"registration_open"`
}

func (d AuthDTO) days() (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(d.ActivationDays), 10, 64)
	return n, err == nil
}

func (d AuthDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("activation_days", d.ActivationDays).Required().Custom(func(interface{}) *internal.AppError {
		if _, ok := d.days(); !ok {
			return internal.NewValidationFieldError("activation_days", "Enter a whole number.", internal.ErrCodeInvalidFormat)
		}
		return nil
	})
	if n, ok := d.days(); ok {
		v.Field("activation_days", n).MinInt(1)
	}
	return v.Validate()
}

func (d AuthDTO) Apply(s *siteDatamodel.AuthSettings) {
	n, _ := d.days()
	s.ActivationDays = int(n)
	s.RegistrationAutoLogin = d.RegistrationAutoLogin
	s.SendActivationEmail = d.SendActivationEmail
	s.RegistrationOpen = d.RegistrationOpen
}

func settingsSnapshot(site *siteDatamodel.Site, s *siteDatamodel.SiteSettings) audit.Snapshot {
	return audit.Snapshot{
		{Name: "display_name", Value: site.Name},
		{Name: "domain_name", Value: site.Domain},
		{Name: "logo", Value: s.Logo},
		{Name: "favicon", Value: s.Favicon},
		{Name: "timezone", Value: s.Timezone},
		{Name: "color", Value: s.Color},
		{Name: "under_construction", Value: strconv.FormatBool(s.UnderConstruction)},
		{Name: "user_bar", Value: strconv.FormatBool(s.UserBar)},
		{Name: "user_logs", Value: strconv.FormatBool(s.UserLogs)},
		{Name: "message", Value: s.Message},
	}
}

func socialSnapshot(s *siteDatamodel.SocialSettings) audit.Snapshot {
	return audit.Snapshot{
		{Name: "facebook", Value: s.Facebook},
		{Name: "twitter", Value: s.Twitter},
		{Name: "instagram", Value: s.Instagram},
		{Name: "youtube", Value: s.Youtube},
	}
}

func authSnapshot(s *siteDatamodel.AuthSettings) audit.Snapshot {
	return audit.Snapshot{
		{Name: "activation_days", Value: strconv.Itoa(s.ActivationDays)},
		{Name: "registration_auto_login", Value: strconv.FormatBool(s.RegistrationAutoLogin)},
		{Name: "send_activation_email", Value: strconv.FormatBool(s.SendActivationEmail)},
		{Name: "registration_open", Value: strconv.FormatBool(s.RegistrationOpen)},
	}
}
