package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DeviceClaims represents the claims of a device token.
// Токен выдается на пару (лицензия, устройство) при активации и
// определяет tenant, данные которого устройство может читать и писать.
type DeviceClaims struct {
	TenantID string `json:"tenant_id"`
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// Service issues and verifies device tokens
type Service struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates a new device token service.
// secret should be a cryptographically secure random string.
func NewService(secret string, tokenTTL time.Duration) *Service {
	return &Service{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// Issue creates a signed device token for a tenant/device pair
func (s *Service) Issue(tenantID, deviceID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := DeviceClaims{
		TenantID: tenantID,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   deviceID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign device token: %w", err)
	}

	return token, expiresAt, nil
}

// Verify validates a device token and returns its claims
func (s *Service) Verify(tokenString string) (*DeviceClaims, error) {
	claims := &DeviceClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse device token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid device token")
	}

	if claims.TenantID == "" {
		return nil, fmt.Errorf("device token has no tenant")
	}

	return claims, nil
}
