package echoapi

import (
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/account"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "accountToken",
		Claims:        new(Claims),
	}
	appName                   string
	jwtExpirationDelta        time.Duration
	jwtRefreshExpirationDelta time.Duration
)

// ConfigureAuth primes the JWT middleware with the app's signing material
// and returns it.
func ConfigureAuth(name string, secretKey []byte, expiration, refreshExpiration time.Duration) echo.MiddlewareFunc {
	appName = name
	appJWTConfig.SigningKey = secretKey
	jwtExpirationDelta = expiration
	jwtRefreshExpirationDelta = refreshExpiration
	return middleware.JWTWithConfig(appJWTConfig)
}

// Claims represents the authorization claims transmitted via a JWT. The
// session ID ties the token to a live server-side session; invalidating the
// session kills the token early.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64        `json:"oriat,omitempty"`
	Name         string       `json:"name,omitempty"`
	Email        string       `json:"email,omitempty"`
	Role         account.Role `json:"role,omitempty"`
	SessionID    string       `json:"sid,omitempty"`
}

func (c Claims) IsAdmin() bool { return c.Role == account.RoleAdmin }

// AccountID parses the numeric subject.
func (c Claims) AccountID() int {
	id, _ := strconv.Atoi(c.Subject)
	return id
}

func newClaims(subject int, role account.Role, sessionID string, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    appName,
			Subject:   strconv.Itoa(subject),
			ExpiresAt: now.Add(jwtExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Role:         role,
		SessionID:    sessionID,
	}
}

// GetStudentClaims builds the claims for a logged-in student.
func GetStudentClaims(st account.Student, sess core.Session, origIat ...int64) *Claims {
	claims := newClaims(st.ID, account.RoleStudent, sess.ID, origIat...)
	claims.Name = st.Name
	claims.Email = st.Email
	return claims
}

// GetAdminClaims builds the claims for a logged-in admin.
func GetAdminClaims(adm account.Admin, sess core.Session, origIat ...int64) *Claims {
	claims := newClaims(adm.ID, account.RoleAdmin, sess.ID, origIat...)
	claims.Name = adm.Username
	return claims
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// sessionMiddleware rejects tokens whose server-side session has been
// invalidated or has expired. Runs after the JWT middleware.
func sessionMiddleware(sessions *core.SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if _, ok := sessions.Get(claims.SessionID); !ok {
				return errSessionExpired
			}
			return next(ctx)
		}
	}
}

func refreshToken(ctx echo.Context, sessions *core.SessionStore) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// the session must still be live
	sess, ok := sessions.Get(claims.SessionID)
	if !ok {
		return "", errSessionExpired
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(jwtRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	refreshed := newClaims(claims.AccountID(), claims.Role, sess.ID, claims.OrigIssuedAt)
	refreshed.Name = claims.Name
	refreshed.Email = claims.Email
	token, err := GenerateToken(refreshed)
	return token, errors.Wrap(err, "generating token")
}
