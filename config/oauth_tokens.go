package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	transport "github.com/mark3labs/mcp-go/client/transport"
)

// FileTokenStore persists one connection's OAuth token pair, implementing
// the transport.TokenStore interface. It respects the user's security
// choice (plaintext vs SSH key encryption), like the credential store.
type FileTokenStore struct {
	slug     string
	dataDir  string
	security SecurityMethod
	encMgr   *EncryptionManager
	mu       sync.RWMutex
}

// NewFileTokenStore creates a persistent token store for a connection slug
func NewFileTokenStore(slug string, dataDir string, security SecurityMethod, encMgr *EncryptionManager) *FileTokenStore {
	return &FileTokenStore{
		slug:     slug,
		dataDir:  dataDir,
		security: security,
		encMgr:   encMgr,
	}
}

// GetToken loads the token from disk. Returns transport.ErrNoToken when
// the connection has never authorized.
func (s *FileTokenStore) GetToken(ctx context.Context) (*transport.Token, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tokenPath := s.getTokenPath()

	switch _, err := os.Stat(tokenPath); {
	case os.IsNotExist(err):
		return nil, transport.ErrNoToken
	case err != nil:
		return nil, fmt.Errorf("failed to stat token file: %w", err)
	}

	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	switch s.security {
	case SecuritySSHKey:
		if s.encMgr == nil {
			return nil, fmt.Errorf("encryption manager not initialized")
		}
		decrypted, err := s.encMgr.Decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt token: %w", err)
		}
		data = decrypted
	case SecurityPlainText:
		// Use data as-is
	default:
		return nil, fmt.Errorf("unknown security method: %s", s.security)
	}

	var token transport.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &token, nil
}

// SaveToken saves the token to disk
func (s *FileTokenStore) SaveToken(ctx context.Context, token *transport.Token) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	switch s.security {
	case SecuritySSHKey:
		if s.encMgr == nil {
			return fmt.Errorf("encryption manager not initialized")
		}
		encrypted, err := s.encMgr.Encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt token: %w", err)
		}
		data = encrypted
	case SecurityPlainText:
		// Use data as-is
	default:
		return fmt.Errorf("unknown security method: %s", s.security)
	}

	tokenDir := filepath.Dir(s.getTokenPath())
	if err := os.MkdirAll(tokenDir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	if err := os.WriteFile(s.getTokenPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// DeleteToken removes the stored token, if any. Missing files are fine:
// cancelling an authorization that never completed must not error.
func (s *FileTokenStore) DeleteToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.getTokenPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// HasToken reports whether a token file exists without decrypting it.
// Used as the fast liveness check for OAuth-style connections.
func (s *FileTokenStore) HasToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.getTokenPath())
	return err == nil
}

// TokenStore returns the token store for one connection slug, sharing
// the credential store's encryption manager so both secrets are sealed
// with the same key.
func (c *Config) TokenStore(slug string) (*FileTokenStore, error) {
	var encMgr *EncryptionManager
	if c.Security.Method == string(SecuritySSHKey) && c.CredentialStore != nil {
		if err := c.CredentialStore.ensureEncryptionManager(); err != nil {
			return nil, err
		}
		encMgr = c.CredentialStore.encManager
	}
	return NewFileTokenStore(slug, c.DataDir(), SecurityMethod(c.Security.Method), encMgr), nil
}

// getTokenPath returns the path to the token file for this connection
func (s *FileTokenStore) getTokenPath() string {
	switch s.security {
	case SecuritySSHKey:
		return filepath.Join(s.dataDir, fmt.Sprintf("oauth_token_%s.enc", s.slug))
	default:
		return filepath.Join(s.dataDir, fmt.Sprintf("oauth_token_%s.json", s.slug))
	}
}
