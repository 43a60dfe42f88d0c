package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("invalid or malformed token")
	ErrRefreshExpired     = errors.New("refresh has expired")
	ErrSessionNotFound    = fmt.Errorf("session %w", core.ErrNotFound)

	// compared against when the user is unknown, so that both failures cost a bcrypt comparison
	dummyHash     []byte
	dummyHashOnce sync.Once
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) error
		// GetSession returns ErrSessionNotFound when missing.
		GetSession(ctx context.Context, id string) (Session, error)
		// RevokeSession marks the session revoked at `at`. Missing or already revoked sessions are left as is.
		RevokeSession(ctx context.Context, id string, at time.Time) error
		RevokeUserSessions(ctx context.Context, userID string, at time.Time) error
		// PurgeSessions deletes sessions that are revoked or expired at now and returns how many were deleted.
		PurgeSessions(ctx context.Context, now time.Time) (int, error)
	}

	Service struct {
		sessions   Repository
		users      user.Repository
		conf       *core.Config
		signingKey []byte
	}
)

var _ user.SessionRevoker = (*Service)(nil)

func NewService(sessions Repository, users user.Repository, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(sessions, "sessions"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()
	vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.SecretKey, "conf.SecretKey"),
	).CheckAndPanic()

	return &Service{
		sessions:   sessions,
		users:      users,
		conf:       conf,
		signingKey: []byte(conf.SecretKey),
	}
}

func (svc *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return core.StoreContext(ctx, svc.conf.Database.QueryTimeout)
}

func getDummyHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcrypt.DefaultCost)
	})
	return dummyHash
}

// Login checks the credentials and opens a new Session. uname may be a username or an email.
func (svc *Service) Login(ctx context.Context, uname, pwd string) (Session, string, error) {
	storeCtx, cancel := svc.storeContext(ctx)
	usr, err := svc.users.GetUser(storeCtx, user.GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
	cancel()
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return Session{}, "", core.TrapStoreErr(err, "finding user")
		}
		_ = bcrypt.CompareHashAndPassword(getDummyHash(), []byte(pwd))
		return Session{}, "", ErrInvalidCredentials
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return Session{}, "", ErrInvalidCredentials
	}
	return svc.issue(ctx, usr, 0)
}

// issue stores a new Session for usr and returns its signed token.
// origIat is the issue time of the first token of a refresh chain (0 for a fresh login).
func (svc *Service) issue(ctx context.Context, usr user.User, origIat int64) (Session, string, error) {
	now := core.NowUTC(NowFunc)
	sess := Session{
		ID:        uuid.New().String(),
		UserID:    usr.ID,
		Role:      usr.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(svc.conf.JWTExpirationDelta),
	}
	if origIat == 0 {
		origIat = now.Unix()
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        sess.ID,
			Issuer:    svc.conf.AppName,
			Subject:   usr.ID,
			Audience:  audience,
			IssuedAt:  now.Unix(),
			ExpiresAt: sess.ExpiresAt.Unix(),
		},
		OrigIssuedAt: origIat,
		Username:     usr.Username,
		Role:         usr.Role,
	}
	token, err := svc.GenerateToken(claims)
	if err != nil {
		return Session{}, "", err
	}

	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	if err := svc.sessions.CreateSession(ctx, sess); err != nil {
		return Session{}, "", core.TrapStoreErr(err, "creating session")
	}
	return sess, token, nil
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (svc *Service) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(svc.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (svc *Service) parse(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrTokenInvalid
		}
		return svc.signingKey, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors == jwt.ValidationErrorExpired {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.Id == "" || claims.Subject == "" || !claims.VerifyAudience(audience, true) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Verify checks the token signature, its expiry and the Session it names.
func (svc *Service) Verify(ctx context.Context, tokenStr string) (*Claims, error) {
	claims, err := svc.parse(tokenStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	sess, err := svc.sessions.GetSession(ctx, claims.Id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, core.TrapStoreErr(err, "finding session")
	}
	if sess.IsRevoked() || sess.UserID != claims.Subject || sess.Role != claims.Role {
		return nil, ErrTokenInvalid
	}
	if !sess.IsActive(NowFunc().UTC()) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// Logout revokes the Session backing claims. Logging out twice is not an error.
func (svc *Service) Logout(ctx context.Context, claims *Claims) error {
	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	return core.TrapStoreErr(svc.sessions.RevokeSession(ctx, claims.Id, core.NowUTC(NowFunc)), "revoking session")
}

// Refresh swaps the Session backing claims for a new one,
// as long as the refresh window opened by the original login has not passed.
func (svc *Service) Refresh(ctx context.Context, claims *Claims) (Session, string, error) {
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(svc.conf.JWTRefreshExpirationDelta)
	if NowFunc().After(expTime) {
		return Session{}, "", ErrRefreshExpired
	}

	storeCtx, cancel := svc.storeContext(ctx)
	usr, err := svc.users.GetUser(storeCtx, user.GetFilter{ID: claims.Subject})
	cancel()
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Session{}, "", ErrTokenInvalid
		}
		return Session{}, "", core.TrapStoreErr(err, "finding user")
	}

	if err := svc.Logout(ctx, claims); err != nil {
		return Session{}, "", err
	}
	return svc.issue(ctx, usr, claims.OrigIssuedAt)
}

// RevokeUserSessions ends every session of the user.
func (svc *Service) RevokeUserSessions(ctx context.Context, userID string) error {
	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	return core.TrapStoreErr(svc.sessions.RevokeUserSessions(ctx, userID, core.NowUTC(NowFunc)), "revoking user sessions")
}

// PurgeSessions deletes revoked and expired sessions.
func (svc *Service) PurgeSessions(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	n, err := svc.sessions.PurgeSessions(ctx, now.UTC())
	return n, core.TrapStoreErr(err, "purging sessions")
}
