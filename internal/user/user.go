// Package user administers accounts: the staff user list, invitations,
// self-registration and the account pages a user manages alone.
package user

import (
	"context"
	"sort"
	"strings"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/internal/crud"
	"github.com/frahmantamala/asset-management/internal/crud/postgres"
	"github.com/frahmantamala/asset-management/internal/designation"
	"github.com/frahmantamala/asset-management/internal/group"
	"github.com/frahmantamala/asset-management/internal/redirect"
	"github.com/frahmantamala/asset-management/internal/storage"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"gorm.io/gorm"
)

const avatarFolder = "avatars"

var meta = crud.Meta{Entity: auth.EntityUser, Path: "/users", Singular: "User", Plural: "Users"}

// Hasher is the part of the auth service that deals with password hashes.
type Hasher interface {
	HashPassword(password string) (string, error)
	CheckPassword(user *identity.User, password string) bool
}

type Users struct {
	*postgres.Store[identity.User]
	groups       *group.Groups
	designations *designation.Designations
	perms        group.PermissionRepositoryAPI
	hasher       Hasher
	files        storage.Storage
}

func NewUsers(db *gorm.DB, groups *group.Groups, designations *designation.Designations, perms group.PermissionRepositoryAPI, hasher Hasher, files storage.Storage) *Users {
	return &Users{
		Store:        postgres.NewStore[identity.User](db, "date_joined DESC", "Designation", "Groups", "Permissions"),
		groups:       groups,
		designations: designations,
		perms:        perms,
		hasher:       hasher,
		files:        files,
	}
}

func (u *Users) Meta() crud.Meta {
	return meta
}

func (u *Users) New() *identity.User {
	return &identity.User{IsActive: true}
}

func (u *Users) ID(item *identity.User) string {
	return item.ID.String()
}

func (u *Users) Title(item *identity.User) string {
	return item.String()
}

func (u *Users) Target(item *identity.User) redirect.Target {
	return meta.Routes(item.ID.String())
}

// Bind fills item from the staff form. Passwords are only taken on create;
// the superuser flag only from superusers.
func (u *Users) Bind(ctx context.Context, item *identity.User, in forms.Input, actor *internal.User, creating bool) error {
	var dto DTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return internal.NewValidationError("Invalid form data", internal.ErrCodeInvalidFormat).WithCause(err)
	}

	item.Email = normalizeEmail(dto.Email)
	item.Name = strings.TrimSpace(dto.Name)
	item.Phone = strings.TrimSpace(dto.Phone)
	item.Address = strings.TrimSpace(dto.Address)
	item.ExtraDetail = strings.TrimSpace(dto.ExtraDetail)
	item.DesignationID = crud.ParseID(dto.Designation)
	item.Designation = nil
	item.IsActive = dto.IsActive
	item.IsStaff = dto.IsStaff
	if actor.IsSuperuser {
		item.IsSuperuser = dto.IsSuperuser
	}

	groups, err := u.groups.FindByIDs(ctx, crud.ParseIDs(dto.Groups))
	if err != nil {
		return internal.NewInternalError("failed to load groups", err)
	}
	item.Groups = groups
	perms, err := group.Assignable(ctx, u.perms, dto.Permissions)
	if err != nil {
		return err
	}
	item.Permissions = perms

	dup, err := crud.Unique(ctx, u.Store, meta, "email", "Email", item.Email, item.ID)
	if err != nil {
		return err
	}
	var passwordErr *internal.AppError
	if creating {
		passwordErr = dto.ValidatePassword()
	}
	if verr := internal.MergeValidation(dto.Validate(), dup, passwordErr); verr != nil {
		return verr
	}

	if creating && dto.Password1 != "" {
		hash, err := u.hasher.HashPassword(dto.Password1)
		if err != nil {
			return internal.NewInternalError("failed to hash password", err)
		}
		item.PasswordHash = hash
	}
	return u.saveAvatar(ctx, item, in)
}

func (u *Users) saveAvatar(ctx context.Context, item *identity.User, in forms.Input) error {
	upload, ok := in.Files["avatar"]
	if !ok {
		return nil
	}
	url, err := u.files.Save(ctx, avatarFolder, upload.Filename, upload.Bytes)
	if err != nil {
		return internal.NewInternalError("failed to store avatar", err)
	}
	item.Avatar = url
	return nil
}

func (u *Users) Save(tx *gorm.DB, item *identity.User, creating bool) error {
	if err := u.Store.Save(tx, item, creating); err != nil {
		return err
	}
	if err := u.ReplaceAssociation(tx, item, "Groups", item.Groups); err != nil {
		return err
	}
	return u.ReplaceAssociation(tx, item, "Permissions", item.Permissions)
}

func (u *Users) Snapshot(item *identity.User) audit.Snapshot {
	groupIDs := make([]string, len(item.Groups))
	for i, g := range item.Groups {
		groupIDs[i] = g.ID.String()
	}
	return audit.Snapshot{
		{Name: "email", Value: item.Email},
		{Name: "name", Value: item.Name},
		{Name: "phone", Value: item.Phone},
		{Name: "address", Value: item.Address},
		{Name: "extra_detail", Value: item.ExtraDetail},
		{Name: "avatar", Value: item.Avatar},
		{Name: "designation", Value: crud.IDString(item.DesignationID)},
		{Name: "groups", Value: sortedKey(groupIDs)},
		{Name: "user_permissions", Value: group.PermissionKey(item.Permissions)},
		{Name: "is_active", Value: flag(item.IsActive)},
		{Name: "is_staff", Value: flag(item.IsStaff)},
		{Name: "is_superuser", Value: flag(item.IsSuperuser)},
	}
}

func (u *Users) Form(ctx context.Context, item *identity.User, creating bool) (*forms.Form, error) {
	designations, err := u.designations.Options(ctx, crud.IDString(item.DesignationID))
	if err != nil {
		return nil, internal.NewInternalError("failed to load designations", err)
	}
	groups, err := u.groups.Options(ctx, item.Groups)
	if err != nil {
		return nil, internal.NewInternalError("failed to load groups", err)
	}
	perms, err := group.PermissionOptions(ctx, u.perms, item.Permissions)
	if err != nil {
		return nil, err
	}

	fields := []*forms.Field{
		forms.Email("email", "Email", item.Email).MarkRequired(),
		forms.Text("name", "Name", item.Name),
		forms.Text("phone", "Phone", item.Phone),
		forms.Textarea("address", "Address", item.Address),
		forms.Textarea("extra_detail", "Extra detail", item.ExtraDetail),
		forms.File("avatar", "Avatar", item.Avatar),
		forms.Select("designation", "Designation", designations),
		forms.MultiSelect("groups", "Groups", groups),
		forms.MultiSelect("user_permissions", "User permissions", perms),
		forms.Checkbox("is_active", "Active", item.IsActive),
		forms.Checkbox("is_staff", "Staff status", item.IsStaff),
		forms.Checkbox("is_superuser", "Superuser status", item.IsSuperuser),
	}
	if creating {
		fields = append(fields,
			forms.Password("password1", "Password").WithHelp("Leave empty to send the user an invitation later."),
			forms.Password("password2", "Password confirmation"),
		)
	}
	return forms.New("", fields...), nil
}

func (u *Users) Table(_ context.Context, items []*identity.User) ([]string, [][]string) {
	rows := make([][]string, len(items))
	for i, item := range items {
		title := ""
		if item.Designation != nil {
			title = item.Designation.Title
		}
		status := "Inactive"
		if item.IsActive {
			status = "Active"
		}
		rows[i] = []string{item.Email, item.String(), title, item.Role(), status}
	}
	return []string{"Email", "Name", "Designation", "Role", "Status"}, rows
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func flag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func sortedKey(values []string) string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return strings.Join(out, ",")
}
