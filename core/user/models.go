package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/policy"
)

type User struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email,omitempty"`
	Role         policy.Role `json:"role"`
	PasswordHash []byte      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == policy.RoleAdmin }
func (u *User) IsStudent() bool { return u.Role == policy.RoleStudent }

// Actor returns the identity used for access checks.
func (u *User) Actor() policy.Actor {
	return policy.Actor{ID: u.ID, Role: u.Role}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username        string      `json:"username" validate:"required,min=3,max=150,alphanum_"`
	Email           string      `json:"email" validate:"omitempty,email,max=254"`
	Role            policy.Role `json:"role" validate:"required,oneof=student admin"`
	Password        string      `json:"password" validate:"required"`
	PasswordConfirm string      `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

// SetUserPassword is used by operators to set a password directly.
type SetUserPassword struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	usr User
}

// GetFilter selects a single User. The first non-empty field is used.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}

type QueryFilter struct {
	Search string      `query:"search"`
	Role   policy.Role `query:"role"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.Role = policy.Role(core.CleanString(string(qf.Role), true /* lower */))
}

// PasswordResetData is rendered by the password_reset email templates.
type PasswordResetData struct {
	Name  string
	UID   string
	Token string
}
