package echoapi

import (
	"context"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/admission"
)

const (
	contextTokenKey   = "accountToken"
	contextAccountKey = "account"
	tokenAudience     = "Admissions"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt    int64  `json:"oriat,omitempty"`
	Email           string `json:"email,omitempty"`
	Role            string `json:"role,omitempty"`
	AdmissionNumber string `json:"admission_number,omitempty"` // students only
}

// Principal is the identity the lifecycle operations are called with.
func (c Claims) Principal() account.Principal {
	return account.Principal{AccountID: c.Subject, Role: c.Role}
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// GetClaims returns the claims of `acc` signing in with `role`, which may differ from acc.Role
// (eg: an approved applicant signs in as a student).
func GetClaims(conf *core.Config, acc account.Account, role, admissionNumber string, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   acc.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt:    oriat,
		Email:           acc.Email,
		Role:            role,
		AdmissionNumber: admissionNumber,
	}
}

// GenerateToken generates a signed JWT token string representing the account Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	jwtConf := newJWTConfig(conf)
	method := jwt.GetSigningMethod(jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextPrincipal(ctx echo.Context) (account.Principal, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return account.Principal{}, err
	}
	return claims.Principal(), nil
}

func (s *Server) getContextAccount(ctx echo.Context, clms ...Claims) (account.Account, error) {
	if acc, ok := ctx.Get(contextAccountKey).(account.Account); ok {
		return acc, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return account.Account{}, errors.Wrap(err, "getting context claims")
		}
	}

	acc, err := s.deps.AccountSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return account.Account{}, errUnauthorized
		}
		return account.Account{}, errors.Wrap(err, "finding account by ID")
	}
	ctx.Set(contextAccountKey, acc)
	return acc, nil
}

// findAccount resolves a login identifier: an email, or the admission number of an approved applicant.
func (s *Server) findAccount(ctx context.Context, identifier string) (account.Account, error) {
	if strings.Contains(identifier, "@") {
		return s.deps.AccountSvc.GetByEmail(ctx, identifier)
	}
	app, err := s.deps.AdmissionSvc.GetByAdmissionNumber(ctx, identifier)
	if err != nil {
		if errors.Cause(err) == admission.ErrNotFound {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}
	return s.deps.AccountSvc.GetByID(ctx, app.AccountID)
}

func (s *Server) signIn(ctx context.Context, acc account.Account, origIat ...int64) (string, error) {
	role, admissionNumber, err := s.deps.AdmissionSvc.EffectiveRole(ctx, acc)
	if err != nil {
		return "", errors.Wrap(err, "resolving role")
	}
	token, err := GenerateToken(s.deps.Conf, GetClaims(s.deps.Conf, acc, role, admissionNumber, origIat...))
	if err != nil {
		return "", errors.Wrap(err, "generating token")
	}
	return token, nil
}

func (s *Server) authenticate(ctx context.Context, identifier, pwd string) (string, error) {
	acc, err := s.findAccount(ctx, identifier)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return "", errAuthenticationFailed
		}
		return "", errors.Wrap(err, "finding account by identifier")
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return "", errAuthenticationFailed
	}
	if !acc.IsActive {
		return "", errAccountDeactivated
	}
	acc, err = s.deps.AccountSvc.SetLastLogin(ctx, acc)
	if err != nil {
		return "", errors.Wrap(err, "setting lastLogin")
	}
	return s.signIn(ctx, acc)
}

func (s *Server) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	acc, err := s.getContextAccount(ctx, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context account")
	}

	// check if account is still active
	if !acc.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.deps.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	// the role is resolved again: an applicant approved since the last sign in becomes a student
	return s.signIn(ctx.Request().Context(), acc, claims.OrigIssuedAt)
}
