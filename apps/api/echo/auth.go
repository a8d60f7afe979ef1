package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

const (
	contextUserKey   = "user"
	contextClaimsKey = "userToken"
	audience         = "Darasa"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
	Role         string `json:"role,omitempty"`
}

// UserID returns the ID of the user the token was issued to.
func (c Claims) UserID() (int, error) {
	return strconv.Atoi(c.Subject)
}

type jwtAuth struct {
	key          []byte
	issuer       string
	expDelta     time.Duration
	refreshDelta time.Duration
	now          func() time.Time
}

func newJWTAuth(conf *core.Config) *jwtAuth {
	return &jwtAuth{
		key:          []byte(conf.SecretKey),
		issuer:       conf.AppName,
		expDelta:     conf.Server.JWTExpirationDelta,
		refreshDelta: conf.Server.JWTRefreshExpirationDelta,
		now:          time.Now,
	}
}

// UserClaims returns the claims of a new token for usr.
// origIat is the issue time of the first token of the session, kept across refreshes.
func (a *jwtAuth) UserClaims(usr user.User, origIat ...int64) *Claims {
	now := a.now()

	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    a.issuer,
			Subject:   strconv.Itoa(usr.ID),
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Role:         usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (a *jwtAuth) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(a.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *jwtAuth) parseToken(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(*jwt.Token) (interface{}, error) { return a.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(a.issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// refresh returns a new token for usr while the refresh window of the session is open.
func (a *jwtAuth) refresh(usr user.User, claims Claims) (string, error) {
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.refreshDelta)
	if a.now().After(expTime) {
		return "", errRefreshExpired
	}
	return a.GenerateToken(a.UserClaims(usr, claims.OrigIssuedAt))
}

func bearerToken(ctx echo.Context) string {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

// authMiddleware loads the user of the bearer token into the context.
// Requests without a token go through anonymously; the access policy decides what they may do.
func authMiddleware(a *jwtAuth, svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tokenStr := bearerToken(ctx)
			if tokenStr == "" {
				return next(ctx)
			}

			claims, err := a.parseToken(tokenStr)
			if err != nil {
				return errInvalidToken.WithInternal(err)
			}
			id, err := claims.UserID()
			if err != nil {
				return errInvalidToken.WithInternal(err)
			}
			usr, err := svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}

			ctx.Set(contextClaimsKey, *claims)
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

// loginRequired rejects anonymous requests.
func loginRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, ok := getContextUser(ctx); !ok {
			return errMissingToken
		}
		return next(ctx)
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(Claims); ok {
		return claims, nil
	}
	return Claims{}, errUnauthorized
}

// getContextUser returns the authenticated user; ok is false for anonymous requests.
func getContextUser(ctx echo.Context) (usr user.User, ok bool) {
	usr, ok = ctx.Get(contextUserKey).(user.User)
	return usr, ok
}

func mustContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := getContextUser(ctx); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}
