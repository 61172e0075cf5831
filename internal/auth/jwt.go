// Package auth issues and verifies bearer tokens. Admin tokens guard the
// manual payout and vendor registration endpoints; vendor tokens carry the
// vendor id as subject and guard catalogue writes.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin  = "admin"
	RoleVendor = "vendor"
	issuer     = "tajer-marketplace"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs an HS256 admin token for subject.
func (i *Issuer) Issue(subject string) (string, error) {
	const op = "internal.auth.Issuer.Issue"

	token, err := i.sign(RoleAdmin, subject)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// IssueVendor signs a vendor token whose subject is the vendor id.
func (i *Issuer) IssueVendor(vendorID int64) (string, error) {
	const op = "internal.auth.Issuer.IssueVendor"

	if vendorID <= 0 {
		return "", fmt.Errorf("%s: invalid vendor id %d", op, vendorID)
	}

	token, err := i.sign(RoleVendor, strconv.FormatInt(vendorID, 10))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

func (i *Issuer) sign(role, subject string) (string, error) {
	if len(i.secret) == 0 {
		return "", errors.New("admin secret is not configured")
	}

	now := i.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// ParseAdmin verifies token and requires the admin role. Every failure
// wraps apperrors.ErrForbidden.
func (i *Issuer) ParseAdmin(token string) (*Claims, error) {
	claims, err := i.parse(token)
	if err != nil {
		return nil, err
	}

	if claims.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: admin role required", apperrors.ErrForbidden)
	}

	return claims, nil
}

// ParseVendor verifies a vendor token and returns the vendor id. Every
// failure wraps apperrors.ErrForbidden.
func (i *Issuer) ParseVendor(token string) (int64, error) {
	claims, err := i.parse(token)
	if err != nil {
		return 0, err
	}

	if claims.Role != RoleVendor {
		return 0, fmt.Errorf("%w: vendor role required", apperrors.ErrForbidden)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad vendor subject %q", apperrors.ErrForbidden, claims.Subject)
	}

	return id, nil
}

func (i *Issuer) parse(token string) (*Claims, error) {
	if len(i.secret) == 0 {
		return nil, fmt.Errorf("%w: token access is disabled", apperrors.ErrForbidden)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", apperrors.ErrForbidden)
		}
		return nil, fmt.Errorf("%w: invalid token: %v", apperrors.ErrForbidden, err)
	}

	return claims, nil
}
