package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/yukikurage/employee-admin-api/internal/constants"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/utils"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type Claims struct {
	UserID uint64      `json:"uid"`
	Email  string      `json:"email,omitempty"`
	Role   models.Role `json:"role"`

	jwtlib.RegisteredClaims
}

// TokenPair is an access token plus the opaque refresh token paired with it.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// TokenProvider issues and validates access tokens and mints refresh tokens.
type TokenProvider interface {
	IssuePair(userID uint64, email string, role models.Role) (TokenPair, error)
	ValidateAccessToken(token string) (Claims, error)
	// ParseExpiredAccessToken checks the signature only, for token refresh.
	ParseExpiredAccessToken(token string) (Claims, error)
}

type HMACProvider struct {
	secret   []byte
	issuer   string
	audience string

	accessExpiresIn  time.Duration
	refreshExpiresIn time.Duration

	now func() time.Time
}

func NewHMACProvider(secret, issuer, audience string, accessExpiresIn, refreshExpiresIn time.Duration) *HMACProvider {
	if accessExpiresIn <= 0 {
		accessExpiresIn = constants.DefaultAccessTokenTTL
	}
	if refreshExpiresIn <= 0 {
		refreshExpiresIn = constants.DefaultRefreshTokenTTL
	}
	return &HMACProvider{
		secret:           []byte(secret),
		issuer:           issuer,
		audience:         audience,
		accessExpiresIn:  accessExpiresIn,
		refreshExpiresIn: refreshExpiresIn,
		now:              time.Now,
	}
}

func (p *HMACProvider) IssuePair(userID uint64, email string, role models.Role) (TokenPair, error) {
	if len(p.secret) == 0 {
		return TokenPair{}, ErrTokenInvalid
	}
	now := p.now().UTC()
	accessExp := now.Add(p.accessExpiresIn)

	c := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    p.issuer,
			Audience:  jwtlib.ClaimStrings{p.audience},
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(accessExp),
		},
	}

	access, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c).SignedString(p.secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := utils.GenerateOpaqueToken(constants.RefreshTokenBytes)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: now.Add(p.refreshExpiresIn),
	}, nil
}

func (p *HMACProvider) ValidateAccessToken(token string) (Claims, error) {
	return p.parse(token,
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(p.now),
	)
}

func (p *HMACProvider) ParseExpiredAccessToken(token string) (Claims, error) {
	return p.parse(token, jwtlib.WithoutClaimsValidation())
}

func (p *HMACProvider) parse(token string, extra ...jwtlib.ParserOption) (Claims, error) {
	opts := append([]jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(p.issuer),
		jwtlib.WithAudience(p.audience),
	}, extra...)
	parser := jwtlib.NewParser(opts...)

	var c Claims
	tok, err := parser.ParseWithClaims(token, &c, func(*jwtlib.Token) (any, error) {
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if tok == nil || !tok.Valid || c.UserID == 0 {
		return Claims{}, ErrTokenInvalid
	}
	return c, nil
}
