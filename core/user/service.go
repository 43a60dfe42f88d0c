package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/policy"
)

var (
	// errors
	ErrNotFound       = fmt.Errorf("user %w", core.ErrNotFound)
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")

	errInvalidValue = "invalid value"
)

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists or ErrEmailExists when taken. An empty email is never checked.
		CheckUsernameUniqueness(ctx context.Context, username, email string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// GetUser returns ErrNotFound when no User matches.
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers returns users matching filter, newest first.
		// QueryFilter.Search does a case-insensitive match on one of User.Username or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		SetUserPassword(ctx context.Context, id string, hash []byte, updatedAt time.Time) (User, error)
		DeleteUser(ctx context.Context, id string) error
	}

	// SessionRevoker ends every session of a user.
	SessionRevoker interface {
		RevokeUserSessions(ctx context.Context, userID string) error
	}

	Service struct {
		repo     Repository
		sessions SessionRevoker
		mailSvc  core.EmailService
		validate *core.Validator
		tokenGen tokenGenerator
		conf     *core.Config
	}
)

func NewService(
	repo Repository,
	sessions SessionRevoker,
	mailSvc core.EmailService,
	validate *core.Validator,
	conf *core.Config,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(sessions, "sessions"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	RegisterValidators(validate)
	return &Service{
		repo:     repo,
		sessions: sessions,
		mailSvc:  mailSvc,
		validate: validate,
		tokenGen: tokenGenerator{secretKey: conf.SecretKey, timeout: conf.PasswordResetTimeoutDelta},
		conf:     conf,
	}
}

func (svc *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return core.StoreContext(ctx, svc.conf.Database.QueryTimeout)
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string) error {
	ctx, cancel := svc.storeContext(ctx)
	defer cancel()

	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return core.TrapStoreErr(err, "checking user uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Create validates nu and stores a new User.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	if err := svc.validate.Check(nu); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Username, nu.Email); err != nil {
		return User{}, err
	}

	now := core.NowUTC(NowFunc)
	usr := User{
		ID:        uuid.New().String(),
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, core.TrapStoreErr(err, "creating user")
}

func (svc *Service) get(ctx context.Context, filter GetFilter) (User, error) {
	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	usr, err := svc.repo.GetUser(ctx, filter)
	return usr, core.TrapStoreErr(err, "finding user")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.get(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.get(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.get(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

// Query lists users, newest first. Only admins may list users.
func (svc *Service) Query(ctx context.Context, filter QueryFilter, actor policy.Actor) ([]User, error) {
	if !actor.Can(policy.ManageUsers) {
		return nil, core.ErrForbidden
	}
	filter.Clean()

	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	users, err := svc.repo.QueryUsers(ctx, filter)
	return users, core.TrapStoreErr(err, "querying users")
}

// Delete removes a User and revokes their sessions. Their notices and assignments are kept.
// Admins cannot delete themselves.
func (svc *Service) Delete(ctx context.Context, id string, actor policy.Actor) error {
	if !actor.Can(policy.ManageUsers) || actor.ID == id {
		return core.ErrForbidden
	}
	return svc.delete(ctx, id)
}

// DeleteByOperator removes a User on behalf of the operator CLI.
func (svc *Service) DeleteByOperator(ctx context.Context, id string) error {
	return svc.delete(ctx, id)
}

func (svc *Service) delete(ctx context.Context, id string) error {
	storeCtx, cancel := svc.storeContext(ctx)
	defer cancel()
	if err := svc.repo.DeleteUser(storeCtx, id); err != nil {
		return core.TrapStoreErr(err, "deleting user")
	}
	return errors.Wrap(svc.sessions.RevokeUserSessions(ctx, id), "revoking user sessions")
}

// SetPassword validates and sets a new password for usr, revoking their sessions.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd, pwdConfirm string) (User, error) {
	data := SetUserPassword{Password: pwd, PasswordConfirm: pwdConfirm, usr: usr}
	if err := svc.validate.Check(data); err != nil {
		return User{}, err
	}
	return svc.setPassword(ctx, usr, pwd)
}

func (svc *Service) setPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	storeCtx, cancel := svc.storeContext(ctx)
	defer cancel()
	usr, err := svc.repo.SetUserPassword(storeCtx, usr.ID, usr.PasswordHash, core.NowUTC(NowFunc))
	if err != nil {
		return User{}, core.TrapStoreErr(err, "saving password")
	}
	if err := svc.sessions.RevokeUserSessions(ctx, usr.ID); err != nil {
		return User{}, errors.Wrap(err, "revoking user sessions")
	}
	return usr, nil
}

// RequestPasswordReset emails a password reset link to the User owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	msg, err := svc.passwordResetMessage(usr)
	if err != nil {
		return err
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func (svc *Service) passwordResetMessage(usr User) (*core.EmailMessage, error) {
	token, err := svc.tokenGen.makeToken(usr)
	if err != nil {
		return nil, errors.Wrap(err, "making password reset token")
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Username, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: PasswordResetData{Name: usr.Username, UID: EncodeUID(usr), Token: token},
	}, nil
}

// MakeResetToken returns a password reset token for usr.
func (svc *Service) MakeResetToken(usr User) (string, error) {
	return svc.tokenGen.makeToken(usr)
}

// ResetPassword sets a new password when the reset token is valid. All sessions of the user are revoked.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) (User, error) {
	if err := svc.validate.Check(data); err != nil {
		return User{}, err
	}

	id, err := decodeUID(data.UID)
	if err != nil {
		return User{}, core.NewFieldValidationError("uid", errInvalidValue)
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return User{}, core.NewFieldValidationError("uid", errInvalidValue)
		}
		return User{}, err
	}
	if err := svc.tokenGen.verifyToken(usr, data.Token); err != nil {
		return User{}, core.NewFieldValidationError("token", errInvalidValue)
	}
	return svc.setPassword(ctx, usr, data.Password)
}
