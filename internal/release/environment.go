package release

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

type Environments struct {
	runner Runner
	log    *zap.Logger
}

func NewEnvironments(runner Runner, log *zap.Logger) *Environments {
	if log == nil {
		log = zap.NewNop()
	}
	return &Environments{runner: runner, log: log}
}

func (e *Environments) MaterializeShadow(manifestPath string) (string, error) {
	info, err := os.Stat(manifestPath)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", err
	}
	shadowPath := ShadowPath(manifestPath)
	if err := os.WriteFile(shadowPath, DisableRestarts(b), info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("err writing shadow manifest: %w", err)
	}
	return shadowPath, nil
}

func (e *Environments) DiscardShadow(shadowPath string) error {
	if err := os.Remove(shadowPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (e *Environments) Up(ctx context.Context, env Environment) error {
	e.log.Info("bringing environment up", zap.String("project", env.Project))
	_, err := e.compose(ctx, env, true, "up", "-d", "--build")
	return err
}

// Down succeeds for environments that are already down, including shadows whose
// manifest has been discarded.
func (e *Environments) Down(ctx context.Context, env Environment) error {
	e.log.Info("bringing environment down", zap.String("project", env.Project))
	_, statErr := os.Stat(env.Manifest)
	_, err := e.compose(ctx, env, statErr == nil, "down", "--remove-orphans")
	return err
}

func (e *Environments) Status(ctx context.Context, env Environment) ([]ContainerStatus, error) {
	out, err := e.compose(ctx, env, true, "ps", "--all", "--format", "json")
	if err != nil {
		return nil, err
	}
	return ParseStatuses(out)
}

func (e *Environments) compose(
	ctx context.Context,
	env Environment,
	withManifest bool,
	args ...string,
) (string, error) {
	base := []string{"compose", "-p", env.Project}
	if withManifest {
		base = append(base, "-f", env.Manifest)
	}
	return e.runner.Run(
		ctx, "docker", append(base, args...),
		WithDir(filepath.Dir(env.Manifest)),
	)
}

// ParseStatuses accepts both the JSON array and the one-object-per-line output
// of docker compose ps.
func ParseStatuses(out string) ([]ContainerStatus, error) {
	out = strings.TrimSpace(out)
	statuses := make([]ContainerStatus, 0)
	if out == "" {
		return statuses, nil
	}
	if strings.HasPrefix(out, "[") {
		if err := json.Unmarshal([]byte(out), &statuses); err != nil {
			return nil, fmt.Errorf("err parsing container status: %w", err)
		}
		return statuses, nil
	}
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var cs ContainerStatus
		if err := json.Unmarshal([]byte(line), &cs); err != nil {
			return nil, fmt.Errorf("err parsing container status: %w", err)
		}
		statuses = append(statuses, cs)
	}
	return statuses, scanner.Err()
}
