package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// credentialsFile is the on-disk shape of the stored credential. One fixed
// key holds the API bearer token.
type credentialsFile struct {
	APIToken string `toml:"api_token"`
}

// Credentials reads and writes the bearer token stored next to the config.
// Token is synchronous and never errors: an unreadable or missing file
// yields the empty token, which blocks refresh and drain upstream.
type Credentials struct {
	path string
}

// NewCredentials creates a credential source for a .camposync directory.
func NewCredentials(root string) *Credentials {
	return &Credentials{path: filepath.Join(root, CredentialsFile)}
}

// Token returns the stored bearer token, or "" when absent.
func (c *Credentials) Token() string {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return ""
	}
	var creds credentialsFile
	if err := toml.Unmarshal(data, &creds); err != nil {
		return ""
	}
	return creds.APIToken
}

// SetToken stores the bearer token, creating the credentials file with
// owner-only permissions.
func (c *Credentials) SetToken(token string) error {
	data, err := toml.Marshal(credentialsFile{APIToken: token})
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	return os.WriteFile(c.path, data, 0600)
}

// ClearToken removes the stored credential.
func (c *Credentials) ClearToken() error {
	err := os.Remove(c.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
