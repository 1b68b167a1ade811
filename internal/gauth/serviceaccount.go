// Package gauth obtains and caches the short-lived bearer credential used
// against the spreadsheet provider. Authentication is server-to-server: a
// service identity signs a JWT-bearer assertion and trades it for an access
// token at the provider's token endpoint.
package gauth

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenURI is the google OAuth2 token endpoint.
const DefaultTokenURI = "https://oauth2.googleapis.com/token"

// ServiceAccount is the machine credential parsed from the provider's
// service-account JSON key file.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`

	key *rsa.PrivateKey
}

// ParseServiceAccount decodes a service-account JSON document and parses its
// PEM private key. The raw JSON and key never appear in logs or responses.
func ParseServiceAccount(raw string) (*ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal([]byte(raw), &sa); err != nil {
		return nil, fmt.Errorf("failed to decode service account JSON: %w", err)
	}
	if sa.ClientEmail == "" {
		return nil, fmt.Errorf("service account missing client_email")
	}
	if sa.PrivateKey == "" {
		return nil, fmt.Errorf("service account missing private_key")
	}
	if sa.TokenURI == "" {
		sa.TokenURI = DefaultTokenURI
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account private key: %w", err)
	}
	sa.key = key
	return &sa, nil
}
