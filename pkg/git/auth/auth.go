// Package auth provides git transport credentials for the manifest repository.
package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// DefaultSSHUser is used when the repository URL carries no user.
const DefaultSSHUser = "git"

// Predefined error variables for consistent error handling.
var (
	ErrSSHKeyPathEmpty = errors.New("SSH key file path is empty")
	ErrSSHKeyRequired  = errors.New("SSH authentication requires a private key")
	ErrInvalidURL      = errors.New("invalid repository URL")
)

// Provider resolves the transport credentials of a repository URL.
type Provider struct {
	sshKeyPath string
}

// NewProvider creates a Provider authenticating SSH remotes with the private key at sshKeyPath.
func NewProvider(sshKeyPath string) *Provider {
	return &Provider{sshKeyPath: sshKeyPath}
}

// AuthMethod returns the credentials for repoURL.
//
// SSH remotes use the configured private key, with the URL's user or "git". HTTP remotes use the
// user and password embedded in the URL, if any. Local remotes need no credentials and yield nil.
func (p *Provider) AuthMethod(repoURL string) (transport.AuthMethod, error) {
	endpoint, err := transport.NewEndpoint(repoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	switch endpoint.Protocol {
	case "ssh":
		key, err := LoadSSHKeyFromFile(p.sshKeyPath)
		if err != nil {
			return nil, err
		}

		user := endpoint.User
		if user == "" {
			user = DefaultSSHUser
		}

		return CreateSSHAuth(user, key)
	case "http", "https":
		return createBasicAuth(endpoint.User, endpoint.Password), nil
	default:
		return nil, nil //nolint:nilnil // Local remotes need no authentication
	}
}

// CreateSSHAuth creates SSH key authentication for user.
func CreateSSHAuth(user string, sshKey []byte) (transport.AuthMethod, error) {
	if len(sshKey) == 0 {
		return nil, ErrSSHKeyRequired
	}

	publicKeys, err := ssh.NewPublicKeys(user, sshKey, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public keys: %w", err)
	}

	return publicKeys, nil
}

// createBasicAuth creates username/password authentication.
func createBasicAuth(username, password string) transport.AuthMethod {
	if username == "" || password == "" {
		return nil
	}

	return &http.BasicAuth{
		Username: username,
		Password: password,
	}
}

// LoadSSHKeyFromFile loads an SSH private key from a file.
func LoadSSHKeyFromFile(filePath string) ([]byte, error) {
	if filePath == "" {
		return nil, ErrSSHKeyPathEmpty
	}

	keyData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key file %s: %w", filePath, err)
	}

	return keyData, nil
}
