package ps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"
)

type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeBasic AuthType = "basic"
)

// DefaultRemote is pushed to when no remote is named.
const DefaultRemote = "origin"

// RemoteAuth holds credentials for pushing checkpoints. A nil *RemoteAuth
// pushes without credentials.
type RemoteAuth struct {
	Type       AuthType
	Token      string
	KeyPath    string
	Passphrase string
	Username   string
	Password   string
}

// RemoteAuthFromEnv builds credentials from MEMDB_GIT_TOKEN, or from
// MEMDB_GIT_SSH_KEY and MEMDB_GIT_SSH_PASSPHRASE. It returns nil when
// neither is set.
func RemoteAuthFromEnv() *RemoteAuth {
	if token := os.Getenv("MEMDB_GIT_TOKEN"); token != "" {
		return &RemoteAuth{Type: AuthTypeToken, Token: token}
	}
	if key := os.Getenv("MEMDB_GIT_SSH_KEY"); key != "" {
		return &RemoteAuth{Type: AuthTypeSSH, KeyPath: key, Passphrase: os.Getenv("MEMDB_GIT_SSH_PASSPHRASE")}
	}
	return nil
}

func (auth *RemoteAuth) method() (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}
	switch auth.Type {
	case AuthTypeNone:
		return nil, nil
	case AuthTypeToken:
		return &http.BasicAuth{Username: "git", Password: auth.Token}, nil
	case AuthTypeBasic:
		return &http.BasicAuth{Username: auth.Username, Password: auth.Password}, nil
	case AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			home, _ := os.UserHomeDir()
			keyPath = filepath.Join(home, ".ssh", "id_rsa")
		}
		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)
	default:
		return nil, fmt.Errorf("unknown auth type: %s", auth.Type)
	}
}

// Remote is a named git remote.
type Remote struct {
	Name string
	URLs []string
}

func (p *Persistence) AddRemote(name, url string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		return fmt.Errorf("failed to add remote '%s': %w", name, err)
	}
	return nil
}

func (p *Persistence) ListRemotes() ([]Remote, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	remotes, err := p.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}
	result := make([]Remote, 0, len(remotes))
	for _, r := range remotes {
		cfg := r.Config()
		result = append(result, Remote{Name: cfg.Name, URLs: cfg.URLs})
	}
	return result, nil
}

// Push publishes the current branch to remoteName, DefaultRemote when empty.
// A remote that is already up to date is not an error.
func (p *Persistence) Push(remoteName string, auth *RemoteAuth) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	if remoteName == "" {
		remoteName = DefaultRemote
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	headRef, err := p.repo.Head()
	if err != nil {
		return ErrNoCheckpoint
	}
	method, err := auth.method()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	branch := headRef.Name()
	err = p.repo.Push(&git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(branch + ":" + branch)},
		Auth:       method,
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	default:
		return fmt.Errorf("failed to push to '%s': %w", remoteName, err)
	}
}
