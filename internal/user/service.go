package user

import (
	"context"
	"log/slog"
	"strings"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/auth"
	auditDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	siteDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/site"
	"github.com/frahmantamala/asset-management/internal/crud"
	"github.com/frahmantamala/asset-management/internal/token"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errWrongPassword = internal.NewValidationFieldError("password",
	"Your password was entered incorrectly. Please enter it again.", internal.ErrCodeInvalidCredentials)

type RepositoryAPI interface {
	// SetPassword stores hash and, with activate set, marks the user active.
	SetPassword(tx *gorm.DB, userID uuid.UUID, hash string, activate bool) error
	Activate(tx *gorm.DB, userID uuid.UUID) error
}

type Service struct {
	db       *gorm.DB
	repo     RepositoryAPI
	users    *Users
	crud     *crud.Service[identity.User]
	tokens   *token.Service
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewService(db *gorm.DB, repo RepositoryAPI, users *Users, tokens *token.Service, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		users:    users,
		crud:     crud.NewService[identity.User](db, users, recorder, logger),
		tokens:   tokens,
		recorder: recorder,
		logger:   logger,
	}
}

// Crud is the service behind the staff user pages.
func (s *Service) Crud() *crud.Service[identity.User] {
	return s.crud
}

// Invite creates an inactive user together with its Addition entry and an
// invitation token, all in one transaction.
func (s *Service) Invite(ctx context.Context, dto InviteDTO, actor *internal.User) (*identity.User, *identity.UserToken, error) {
	email := normalizeEmail(dto.Email)
	dup, err := crud.Unique(ctx, s.users.Store, meta, "email", "Email", email, uuid.Nil)
	if err != nil {
		return nil, nil, internal.NewInternalError("failed to check email", err)
	}
	if verr := internal.MergeValidation(dto.Validate(), dup); verr != nil {
		return nil, nil, verr
	}

	groups, err := s.users.groups.FindByIDs(ctx, crud.ParseIDs(dto.Groups))
	if err != nil {
		return nil, nil, internal.NewInternalError("failed to load groups", err)
	}
	item := &identity.User{
		Email:         email,
		Name:          strings.TrimSpace(dto.Name),
		DesignationID: crud.ParseID(dto.Designation),
		Groups:        groups,
		IsStaff:       dto.IsStaff,
	}

	var issued *identity.UserToken
	err = s.crud.Create(ctx, item, actor, func(tx *gorm.DB, item *identity.User) error {
		var err error
		issued, err = s.tokens.Make(ctx, tx, item.ID, token.Invite)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.InfoContext(ctx, "Invite: user invited", "user_id", item.ID, "actor_id", actor.ID)
	return item, issued, nil
}

func (s *Service) CheckInvite(ctx context.Context, value string) (*identity.UserToken, error) {
	return s.tokens.Check(ctx, value, token.Invite)
}

// RedeemInvite sets the first password of an invited user, activates the
// account and burns the token.
func (s *Service) RedeemInvite(ctx context.Context, value string, dto auth.SetPasswordDTO) (*identity.User, error) {
	row, err := s.tokens.Check(ctx, value, token.Invite)
	if err != nil {
		return nil, err
	}
	if verr := dto.Validate(); verr != nil {
		return nil, verr
	}
	hash, err := s.users.hasher.HashPassword(dto.Password1)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	user := row.User
	entry, err := s.redeem(ctx, row, []string{"password", "is_active"}, func(tx *gorm.DB) error {
		return s.repo.SetPassword(tx, user.ID, hash, true)
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Announce(ctx, entry)
	user.IsActive = true
	user.PasswordHash = hash
	return &user, nil
}

// Register signs up a visitor. With activation mails on, the account stays
// inactive and an activation token is returned alongside it.
func (s *Service) Register(ctx context.Context, dto RegisterDTO, settings *siteDatamodel.AuthSettings) (*identity.User, *identity.UserToken, error) {
	if settings == nil || !settings.RegistrationOpen {
		return nil, nil, internal.ErrRegistrationClose
	}
	email := normalizeEmail(dto.Email)
	dup, err := crud.Unique(ctx, s.users.Store, meta, "email", "Email", email, uuid.Nil)
	if err != nil {
		return nil, nil, internal.NewInternalError("failed to check email", err)
	}
	if verr := internal.MergeValidation(dto.Validate(), dup); verr != nil {
		return nil, nil, verr
	}
	hash, err := s.users.hasher.HashPassword(dto.Password1)
	if err != nil {
		return nil, nil, internal.NewInternalError("failed to hash password", err)
	}

	item := &identity.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(dto.Name),
		PasswordHash: hash,
		Agree:        dto.Agree,
		IsActive:     !settings.SendActivationEmail,
	}
	self := &internal.User{ID: item.ID, Email: item.Email, Name: item.Name}

	var issued *identity.UserToken
	var steps []crud.Step[identity.User]
	if settings.SendActivationEmail {
		steps = append(steps, func(tx *gorm.DB, item *identity.User) error {
			var err error
			issued, err = s.tokens.Make(ctx, tx, item.ID, token.Activation)
			return err
		})
	}
	if err := s.crud.Create(ctx, item, self, steps...); err != nil {
		return nil, nil, err
	}
	return item, issued, nil
}

func (s *Service) Activate(ctx context.Context, value string) (*identity.User, error) {
	row, err := s.tokens.Check(ctx, value, token.Activation)
	if err != nil {
		return nil, err
	}
	user := row.User
	entry, err := s.redeem(ctx, row, []string{"is_active"}, func(tx *gorm.DB) error {
		return s.repo.Activate(tx, user.ID)
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Announce(ctx, entry)
	user.IsActive = true
	return &user, nil
}

// redeem applies change, consumes the token and records the change as made
// by the token's owner, in one transaction.
func (s *Service) redeem(ctx context.Context, row *identity.UserToken, changed []string, change func(tx *gorm.DB) error) (*auditDatamodel.LogEntry, error) {
	var entry *auditDatamodel.LogEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := change(tx); err != nil {
			return internal.NewInternalError("failed to update user", err)
		}
		if err := s.tokens.Consume(tx, row); err != nil {
			return err
		}
		var err error
		entry, err = s.recorder.Record(tx, audit.Entry{
			ActorID:       row.UserID,
			Entity:        meta.Entity,
			ObjectID:      row.UserID.String(),
			Action:        audit.Change,
			Title:         row.User.String(),
			ChangedFields: changed,
		})
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "redeem: transaction failed", "user_id", row.UserID, "error", err)
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to redeem token", err)
	}
	return entry, nil
}

// Profile loads the signed-in user's own row.
func (s *Service) Profile(ctx context.Context, actor *internal.User) (*identity.User, error) {
	item, err := s.users.Get(ctx, actor.ID.String())
	if err != nil {
		return nil, internal.NewInternalError("failed to load profile", err)
	}
	if item == nil {
		return nil, internal.ErrObjectNotFound
	}
	return item, nil
}

func profileSnapshot(item *identity.User) audit.Snapshot {
	return audit.Snapshot{
		{Name: "name", Value: item.Name},
		{Name: "phone", Value: item.Phone},
		{Name: "address", Value: item.Address},
		{Name: "extra_detail", Value: item.ExtraDetail},
		{Name: "avatar", Value: item.Avatar},
	}
}

// UpdateProfile applies the profile form to the actor's own row. The
// returned user carries the submitted values even when validation fails.
func (s *Service) UpdateProfile(ctx context.Context, actor *internal.User, in forms.Input) (*identity.User, error) {
	item, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}
	var dto ProfileDTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return item, internal.NewValidationError("Invalid form data", internal.ErrCodeInvalidFormat).WithCause(err)
	}

	before := profileSnapshot(item)
	item.Name = strings.TrimSpace(dto.Name)
	item.Phone = strings.TrimSpace(dto.Phone)
	item.Address = strings.TrimSpace(dto.Address)
	item.ExtraDetail = strings.TrimSpace(dto.ExtraDetail)
	if verr := dto.Validate(); verr != nil {
		return item, verr
	}
	if err := s.users.saveAvatar(ctx, item, in); err != nil {
		return item, err
	}

	if _, err := s.crud.Update(ctx, item, audit.Diff(before, profileSnapshot(item)), actor); err != nil {
		return item, err
	}
	return item, nil
}

// DeleteAccount removes the actor's own account once the password matches.
func (s *Service) DeleteAccount(ctx context.Context, actor *internal.User, dto DeleteAccountDTO) error {
	if verr := dto.Validate(); verr != nil {
		return verr
	}
	item, err := s.Profile(ctx, actor)
	if err != nil {
		return err
	}
	if !s.users.hasher.CheckPassword(item, dto.Password) {
		return errWrongPassword
	}
	if _, err := s.crud.Delete(ctx, item.ID.String(), actor); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "DeleteAccount: account deleted", "user_id", item.ID)
	return nil
}

// SetPassword is the staff-side password change for the user with id.
func (s *Service) SetPassword(ctx context.Context, id string, dto auth.SetPasswordDTO, actor *internal.User) (*identity.User, error) {
	item, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if item == nil {
		return nil, internal.ErrObjectNotFound
	}
	if verr := dto.Validate(); verr != nil {
		return item, verr
	}
	hash, err := s.users.hasher.HashPassword(dto.Password1)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	var entry *auditDatamodel.LogEntry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.SetPassword(tx, item.ID, hash, false); err != nil {
			return err
		}
		var err error
		entry, err = s.recorder.Record(tx, audit.Entry{
			ActorID:       actor.ID,
			Entity:        meta.Entity,
			ObjectID:      item.ID.String(),
			Action:        audit.Change,
			Title:         item.String(),
			ChangedFields: []string{"password"},
		})
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "SetPassword: transaction failed", "user_id", item.ID, "error", err)
		return nil, internal.NewInternalError("failed to set password", err)
	}
	s.recorder.Announce(ctx, entry)
	item.PasswordHash = hash
	return item, nil
}
