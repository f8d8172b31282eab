package qbo

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"qbridge/internal/domain"
)

const (
	authorizeURL = "https://appcenter.intuit.com/connect/oauth2"
	tokenURL     = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"

	accountingScope = "com.intuit.quickbooks.accounting openid profile email phone address"

	stateTTL = 10 * time.Minute
)

// Authorizer runs the authorization-code flow for the remote accounting
// platform. The state parameter is a short-lived signed token carrying the
// connection slot, so the callback cannot be steered to a different slot.
type Authorizer struct {
	oauth       oauth2.Config
	stateSecret []byte
	now         func() time.Time
}

// NewAuthorizer builds an Authorizer. publicURL is the externally reachable
// base URL of this service; the callback lands on publicURL + "/data_access".
func NewAuthorizer(clientID, clientSecret, publicURL, stateSecret string) *Authorizer {
	return &Authorizer{
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authorizeURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			RedirectURL: publicURL + "/data_access",
			Scopes:      []string{accountingScope},
		},
		stateSecret: []byte(stateSecret),
		now:         time.Now,
	}
}

type stateClaims struct {
	Slot string `json:"slot"`
	jwt.RegisteredClaims
}

// AuthURL returns the authorization URL for the given connection slot.
func (a *Authorizer) AuthURL(slot domain.ConnectionSlot) (string, error) {
	if a.oauth.RedirectURL == "/data_access" {
		return "", domain.ErrPublicURLUnset
	}
	state, err := a.signState(slot)
	if err != nil {
		return "", err
	}
	return a.oauth.AuthCodeURL(state), nil
}

// Exchange trades the authorization code for tokens.
func (a *Authorizer) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}

// DecodeState validates the signed state token and returns the slot it was
// issued for.
func (a *Authorizer) DecodeState(state string) (domain.ConnectionSlot, error) {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.stateSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidAuthState, err)
	}
	return domain.ParseSlot(claims.Slot), nil
}

func (a *Authorizer) signState(slot domain.ConnectionSlot) (string, error) {
	now := a.now()
	claims := stateClaims{
		Slot: string(slot),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.stateSecret)
	if err != nil {
		return "", fmt.Errorf("signing auth state: %w", err)
	}
	return signed, nil
}
