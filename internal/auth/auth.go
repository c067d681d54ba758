package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"motionportal/internal/domain"
)

// Роли портала. Всё, что не клиент, считается сотрудником студии.
const (
	RoleAdmin      = "ADMIN"
	RoleTeamMember = "TEAM_MEMBER"
	RoleClient     = "CLIENT"
)

var errNoToken = errors.New("no session token")

// Identity результат проверки сессии
type Identity struct {
	UserID string
	Role   string
}

// Actor переводит роль в вид автора для комментариев и согласований
func (i Identity) Actor() domain.Actor {
	kind := domain.ActorKindUser
	if strings.EqualFold(strings.TrimSpace(i.Role), RoleClient) {
		kind = domain.ActorKindClient
	}
	return domain.Actor{ID: i.UserID, Kind: kind}
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier достает пользователя из запроса
type Verifier interface {
	VerifyToken(r *http.Request) (*Identity, error)
}

// TokenManager выпускает и проверяет токены сессии (HS256)
type TokenManager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	now        func() time.Time
}

func NewTokenManager(cfg *Config) (*TokenManager, error) {
	if cfg == nil || cfg.SessionSecret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	return &TokenManager{
		secret:     []byte(cfg.SessionSecret),
		ttl:        cfg.SessionTTL,
		cookieName: cfg.CookieName,
		now:        time.Now,
	}, nil
}

func (m *TokenManager) CookieName() string {
	return m.cookieName
}

func (m *TokenManager) Issue(userID, role string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := Claims{
		Role: strings.ToUpper(strings.TrimSpace(role)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

func (m *TokenManager) Parse(tokenString string) (*Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid session token: missing subject")
	}
	return &Identity{UserID: claims.Subject, Role: claims.Role}, nil
}

// VerifyToken берет токен из cookie сессии, затем из заголовка Authorization
func (m *TokenManager) VerifyToken(r *http.Request) (*Identity, error) {
	token := tokenFromRequest(r, m.cookieName)
	if token == "" {
		return nil, errNoToken
	}
	return m.Parse(token)
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
