package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
	ErrRoleInvalid  = errors.New("token carries an unknown role")
	ErrIdentityGap  = errors.New("token role requires a staff or patient id")
)

type carepathClaims struct {
	jwt.RegisteredClaims
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	StaffID   *uuid.UUID `json:"staff_id,omitempty"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
}

// JWTManager verifies the access tokens issued by the identity provider and
// mints tokens for operators through the CLI.
type JWTManager struct {
	cfg config.JWTConfig
	now func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	return &JWTManager{cfg: cfg, now: time.Now}
}

// Issue signs an access token for claims. A zero ttl uses the configured one.
func (m *JWTManager) Issue(claims *domain.Claims, ttl time.Duration) (string, time.Time, error) {
	if err := checkIdentity(claims); err != nil {
		return "", time.Time{}, err
	}
	if ttl <= 0 {
		ttl = m.cfg.AccessTokenTTL
	}

	now := m.now()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, carepathClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   claims.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			// 10s of skew for clocks across nodes
			NotBefore: jwt.NewNumericDate(now.Add(-10 * time.Second)),
			ID:        uuid.NewString(),
		},
		Email:     claims.Email,
		Role:      string(claims.Role),
		StaffID:   claims.StaffID,
		PatientID: claims.PatientID,
	})

	signed, err := token.SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

func (m *JWTManager) ValidateAccessToken(tokenString string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&carepathClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(m.cfg.Secret), nil
		},
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*carepathClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	out := &domain.Claims{
		UserID:    userID,
		Email:     claims.Email,
		Role:      domain.Role(claims.Role),
		StaffID:   claims.StaffID,
		PatientID: claims.PatientID,
	}
	if err := checkIdentity(out); err != nil {
		return nil, err
	}
	return out, nil
}

// checkIdentity rejects claims the services could not authorize: doctors
// and nurses act through their staff id, patients through their patient id.
func checkIdentity(c *domain.Claims) error {
	if !c.Role.IsValid() {
		return ErrRoleInvalid
	}
	switch c.Role {
	case domain.RoleDoctor, domain.RoleNurse:
		if c.StaffID == nil {
			return ErrIdentityGap
		}
	case domain.RolePatient:
		if c.PatientID == nil {
			return ErrIdentityGap
		}
	}
	return nil
}
