package auth

import (
	"fmt"

	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
)

const (
	ActionView   = "view"
	ActionAdd    = "add"
	ActionChange = "change"
	ActionDelete = "delete"
)

var Actions = []string{ActionView, ActionAdd, ActionChange, ActionDelete}

const (
	EntityUser           = "user"
	EntityGroup          = "group"
	EntityDesignation    = "designation"
	EntityAsset          = "asset"
	EntityAssetRequest   = "asset_request"
	EntityAssetIssue     = "asset_issue"
	EntityCategory       = "category"
	EntityDepartment     = "department"
	EntitySupplier       = "supplier"
	EntityAssetStatus    = "asset_status"
	EntityUserLog        = "user_log"
	EntitySiteSettings   = "site_settings"
	EntitySocialSettings = "social_settings"
	EntityAuthSettings   = "auth_settings"
)

// Entity is a permission target with its human label.
type Entity struct {
	Name  string
	Label string
}

var Entities = []Entity{
	{EntityUser, "user"},
	{EntityGroup, "group"},
	{EntityDesignation, "designation"},
	{EntityAsset, "asset"},
	{EntityAssetRequest, "asset request"},
	{EntityAssetIssue, "asset issue"},
	{EntityCategory, "category"},
	{EntityDepartment, "department"},
	{EntitySupplier, "supplier"},
	{EntityAssetStatus, "asset status"},
	{EntityUserLog, "user log"},
	{EntitySiteSettings, "site settings"},
	{EntitySocialSettings, "social settings"},
	{EntityAuthSettings, "auth settings"},
}

func Codename(entity, action string) string {
	return entity + "." + action
}

// Catalog lists every permission the seeder installs.
func Catalog() []identity.Permission {
	out := make([]identity.Permission, 0, len(Entities)*len(Actions))
	for _, e := range Entities {
		for _, a := range Actions {
			out = append(out, identity.Permission{
				Entity:   e.Name,
				Action:   a,
				Codename: Codename(e.Name, a),
				Name:     fmt.Sprintf("Can %s %s", a, e.Label),
			})
		}
	}
	return out
}

var hidden = map[string]struct{}{
	Codename(EntitySiteSettings, ActionAdd):      {},
	Codename(EntitySiteSettings, ActionDelete):   {},
	Codename(EntitySocialSettings, ActionAdd):    {},
	Codename(EntitySocialSettings, ActionDelete): {},
	Codename(EntityAuthSettings, ActionAdd):      {},
	Codename(EntityAuthSettings, ActionDelete):   {},
}

// IsAssignable reports whether p may be offered on user and group forms.
// Audit entries are never editable and settings rows are never added or removed.
func IsAssignable(p identity.Permission) bool {
	if p.Entity == EntityUserLog {
		return false
	}
	_, skip := hidden[p.Codename]
	return !skip
}

func Assignable(perms []identity.Permission) []identity.Permission {
	out := make([]identity.Permission, 0, len(perms))
	for _, p := range perms {
		if IsAssignable(p) {
			out = append(out, p)
		}
	}
	return out
}
