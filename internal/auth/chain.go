// ABOUTME: Ordered credential chain for authenticating inbound requests
// ABOUTME: Tries bearer JWTs first, then the static API key fallback

package auth

import (
	"errors"
	"net/http"
	"strings"
)

// Chain errors
var (
	// ErrNotApplicable means the verifier found no credential of its kind
	// on the request; the chain moves on to the next verifier.
	ErrNotApplicable = errors.New("credential not presented")

	// ErrUnauthorized means no verifier accepted the request
	ErrUnauthorized = errors.New("unauthorized")
)

// Identity describes an authenticated caller. Subject is empty when the
// request authenticated with the static API key, which carries no identity.
type Identity struct {
	Subject string
}

// Verifier checks one kind of credential on a request. ErrNotApplicable
// means the request carries no credential of this kind; any other error
// is a terminal rejection and the chain stops.
type Verifier interface {
	Authenticate(r *http.Request) (*Identity, error)
}

// BearerVerifier authenticates "Authorization: Bearer" tokens.
// A presented token that fails verification never falls through to the
// next scheme.
type BearerVerifier struct {
	tokens TokenVerifier
}

// NewBearerVerifier creates a BearerVerifier backed by the given token verifier
func NewBearerVerifier(tokens TokenVerifier) *BearerVerifier {
	return &BearerVerifier{tokens: tokens}
}

// Authenticate verifies the bearer token on the request, if one is present
func (b *BearerVerifier) Authenticate(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, ErrNotApplicable
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return nil, ErrInvalidToken
	}

	subject, err := b.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	return &Identity{Subject: subject}, nil
}

// APIKeyVerifier authenticates the legacy static shared key, supplied in
// the X-API-KEY header or the api_key query parameter.
type APIKeyVerifier struct {
	key string
}

// NewAPIKeyVerifier creates an APIKeyVerifier for the configured key
func NewAPIKeyVerifier(key string) *APIKeyVerifier {
	return &APIKeyVerifier{key: key}
}

// Authenticate checks the supplied key against the configured value.
// The identity it yields carries no subject.
func (a *APIKeyVerifier) Authenticate(r *http.Request) (*Identity, error) {
	key := r.Header.Get("X-API-KEY")
	if key == "" {
		key = r.URL.Query().Get("api_key")
	}
	if key == "" {
		return nil, ErrNotApplicable
	}

	if a.key == "" || key != a.key {
		return nil, ErrUnauthorized
	}

	return &Identity{}, nil
}

// Chain tries each verifier in order, falling through only when a
// verifier reports ErrNotApplicable.
type Chain struct {
	verifiers []Verifier
}

// NewChain creates a credential chain from the given verifiers, in order
func NewChain(verifiers ...Verifier) *Chain {
	return &Chain{verifiers: verifiers}
}

// Authenticate runs the chain against the request. It returns the first
// verifier's identity or terminal error, or ErrUnauthorized when every
// verifier reported ErrNotApplicable.
func (c *Chain) Authenticate(r *http.Request) (*Identity, error) {
	for _, v := range c.verifiers {
		identity, err := v.Authenticate(r)
		if errors.Is(err, ErrNotApplicable) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return identity, nil
	}
	return nil, ErrUnauthorized
}
