package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned by LoadToken when no usable token is stored.
var ErrNoToken = errors.New("not logged in")

// LoadToken reads the stored session token.
// A missing, unreadable or access-token-less file is ErrNoToken.
func (c *Config) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.TokenPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: invalid %s: %v", ErrNoToken, TokenFile, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s has no access token", ErrNoToken, TokenFile)
	}
	return &tok, nil
}

// SaveToken writes tok with mode 0600, creating the directory if needed.
func (c *Config) SaveToken(tok *oauth2.Token) error {
	if err := c.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.TokenPath(), data, 0600)
}
