package release

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

const DefaultGitHost = "github.com"

type Cloner interface {
	Clone(ctx context.Context, url, path string, auth *Auth) error
}

// GoGitCloner clones over SSH with go-git, authenticating with a deploy key or
// the local SSH agent.
type GoGitCloner struct{}

func (GoGitCloner) Clone(ctx context.Context, url, path string, auth *Auth) error {
	method, err := sshAuth(auth)
	if err != nil {
		return err
	}
	_, err = git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:  url,
		Auth: method,
		Tags: git.AllTags,
	})
	if err != nil {
		_ = os.RemoveAll(path)
		return fmt.Errorf("err cloning %s: %w", url, err)
	}
	return nil
}

func sshAuth(auth *Auth) (transport.AuthMethod, error) {
	user := "git"
	if auth != nil && auth.Username != "" {
		user = auth.Username
	}
	if auth == nil || len(auth.SSHPrivateKey) == 0 {
		agentAuth, err := gitssh.NewSSHAgentAuth(user)
		if err != nil {
			return nil, fmt.Errorf("err connecting to ssh agent: %w", err)
		}
		agentAuth.HostKeyCallback = ssh.InsecureIgnoreHostKey()
		return agentAuth, nil
	}
	keys, err := gitssh.NewPublicKeys(user, auth.SSHPrivateKey, "")
	if err != nil {
		return nil, fmt.Errorf("err parsing deploy key: %w", err)
	}
	keys.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	return keys, nil
}

type Revisions struct {
	runner  Runner
	cloner  Cloner
	version VersionFile
	host    string
	log     *zap.Logger
}

func NewRevisions(runner Runner, cloner Cloner, version VersionFile, log *zap.Logger) *Revisions {
	if log == nil {
		log = zap.NewNop()
	}
	return &Revisions{
		runner:  runner,
		cloner:  cloner,
		version: version,
		host:    DefaultGitHost,
		log:     log,
	}
}

func (r *Revisions) Version() VersionFile {
	return r.version
}

// CloneURLs returns the anonymous https URL and the authenticated SSH URL for an
// owner/name repository identifier. Full URLs are used as given.
func (r *Revisions) CloneURLs(repository string) (string, string) {
	if strings.Contains(repository, "://") || strings.HasPrefix(repository, "git@") {
		return repository, repository
	}
	repository = strings.TrimSuffix(repository, ".git")
	return fmt.Sprintf("https://%s/%s.git", r.host, repository),
		fmt.Sprintf("git@%s:%s.git", r.host, repository)
}

func (r *Revisions) EnsureCloned(
	ctx context.Context,
	repository, workingPath string,
	auth *Auth,
) error {
	if _, err := os.Stat(workingPath); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	httpsURL, sshURL := r.CloneURLs(repository)
	_, primaryErr := r.runner.Run(
		ctx, "git", []string{"clone", httpsURL, workingPath},
		WithEnv(map[string]string{"GIT_TERMINAL_PROMPT": "0"}),
	)
	if primaryErr == nil {
		return nil
	}
	r.log.Warn("clone failed, retrying with ssh",
		zap.String("repository", repository),
		zap.Error(primaryErr),
	)

	fallbackErr := r.cloner.Clone(ctx, sshURL, workingPath, auth)
	if fallbackErr == nil {
		return nil
	}
	return &CloneError{Repository: repository, Primary: primaryErr, Fallback: fallbackErr}
}

func (r *Revisions) CaptureBaseline(ctx context.Context, workingPath string) (*RevisionRecord, error) {
	out, err := r.git(ctx, workingPath, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	rec := &RevisionRecord{PreviousRevision: strings.TrimSpace(out)}
	tag, ok, err := r.version.Read(workingPath)
	if err != nil {
		return nil, err
	}
	rec.PreviousVersionTag = tag
	rec.HadVersionTag = ok
	return rec, nil
}

func (r *Revisions) CheckoutTag(ctx context.Context, workingPath, tag string) error {
	if _, err := r.git(ctx, workingPath, "fetch", "--tags", "--force"); err != nil {
		return &CheckoutError{Tag: tag, Err: err}
	}
	r.discardVersionChanges(ctx, workingPath)

	if _, err := r.git(
		ctx, workingPath,
		"rev-parse", "--verify", "--quiet", fmt.Sprintf("refs/tags/%s^{commit}", tag),
	); err != nil {
		return &CheckoutError{Tag: tag}
	}
	if _, err := r.git(ctx, workingPath, "checkout", "--quiet", "tags/"+tag); err != nil {
		return &CheckoutError{Tag: tag, Err: err}
	}

	if err := r.version.Write(workingPath, tag); err != nil {
		return fmt.Errorf("err recording version %s: %w", tag, err)
	}
	return nil
}

func (r *Revisions) RestoreRevision(
	ctx context.Context,
	workingPath string,
	rec *RevisionRecord,
) error {
	r.discardVersionChanges(ctx, workingPath)
	if _, err := r.git(ctx, workingPath, "checkout", "--quiet", rec.PreviousRevision); err != nil {
		return err
	}
	if rec.HadVersionTag {
		if err := r.version.Write(workingPath, rec.PreviousVersionTag); err != nil {
			return fmt.Errorf("err restoring version %s: %w", rec.PreviousVersionTag, err)
		}
	}
	return nil
}

// discardVersionChanges is best-effort: the file may be absent or untracked.
func (r *Revisions) discardVersionChanges(ctx context.Context, workingPath string) {
	if !r.version.Exists(workingPath) {
		return
	}
	if _, err := r.git(ctx, workingPath, "checkout", "--", r.version.Name); err != nil {
		r.log.Debug("unable to discard version file changes", zap.Error(err))
	}
}

func (r *Revisions) git(ctx context.Context, workingPath string, args ...string) (string, error) {
	return r.runner.Run(ctx, "git", args, WithDir(workingPath))
}
