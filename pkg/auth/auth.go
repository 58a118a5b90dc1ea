// Package auth resolves the client id of an incoming request. Issuing and
// revoking credentials happens elsewhere; this package only reads them.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClientIDHeader = "X-Client-ID"
	ClientIDQuery  = "client_id"
	TokenQuery     = "token"

	bearerPrefix = "Bearer "
)

var errMissingCredentials = errors.New("missing client credentials")

// Identifier extracts the authenticated client id from a request.
type Identifier interface {
	Identify(r *http.Request) (string, error)
}

type Config struct {
	Mode      string `env:"FLCOORD_AUTH_MODE"       envDefault:"header"`
	JWTSecret string `env:"FLCOORD_AUTH_JWT_SECRET"`
	JWTIssuer string `env:"FLCOORD_AUTH_JWT_ISSUER"`
}

func New(cfg Config) (Identifier, error) {
	switch cfg.Mode {
	case "header", "":
		return HeaderIdentifier{}, nil
	case "jwt":
		if cfg.JWTSecret == "" {
			return nil, errors.New("jwt auth requires a secret")
		}

		return NewJWTIdentifier([]byte(cfg.JWTSecret), cfg.JWTIssuer), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}

// HeaderIdentifier trusts the client id set by an authenticating proxy in
// front of the coordinator.
type HeaderIdentifier struct{}

func (HeaderIdentifier) Identify(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(ClientIDHeader))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get(ClientIDQuery))
	}
	if id == "" {
		return "", errors.Join(pkgerrors.ErrAuthentication, errMissingCredentials)
	}

	return id, nil
}

// JWTIdentifier validates HS256 bearer tokens and uses the subject claim as
// the client id. Browsers cannot set headers on websocket upgrades, so the
// token is also read from the query string.
type JWTIdentifier struct {
	secret []byte
	issuer string
}

func NewJWTIdentifier(secret []byte, issuer string) *JWTIdentifier {
	return &JWTIdentifier{secret: secret, issuer: issuer}
}

func (j *JWTIdentifier) Identify(r *http.Request) (string, error) {
	token := r.URL.Query().Get(TokenQuery)
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		token = strings.TrimPrefix(h, bearerPrefix)
	}
	if token == "" {
		return "", errors.Join(pkgerrors.ErrAuthentication, errMissingCredentials)
	}

	return j.Parse(token)
}

func (j *JWTIdentifier) Parse(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...); err != nil {
		return "", errors.Join(pkgerrors.ErrAuthentication, err)
	}
	if claims.Subject == "" {
		return "", errors.Join(pkgerrors.ErrAuthentication, errors.New("token has no subject"))
	}

	return claims.Subject, nil
}

// Issue signs a token for clientID. It is used by tooling and tests; the
// coordinator itself never hands out tokens.
func (j *JWTIdentifier) Issue(clientID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
