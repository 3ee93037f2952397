package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testManifest = `services:
  web:
    image: nginx:alpine
    restart: always
  worker:
    image: busybox
    restart: "on-failure:3"
`

// fakeRepo simulates a git working copy whose only tracked file of interest is
// package.json.
type fakeRepo struct {
	dir     string
	head    string
	commits map[string]string
	tags    map[string]string
}

func (r *fakeRepo) writeVersion(t *testing.T) {
	content, ok := r.commits[r.head]
	require.True(t, ok)
	require.NoError(t, os.WriteFile(filepath.Join(r.dir, "package.json"), []byte(content), 0o644))
}

func packageJSON(version string) string {
	return fmt.Sprintf("{\n  \"name\": \"app\",\n  \"version\": %q\n}\n", version)
}

type fakeRunner struct {
	t    *testing.T
	repo *fakeRepo

	mu    sync.Mutex
	calls []string
	up    map[string]bool
	fail  map[string]error
	ps    func(project string, up bool) string
}

func newFakeRunner(t *testing.T, repo *fakeRepo) *fakeRunner {
	return &fakeRunner{
		t:    t,
		repo: repo,
		up:   make(map[string]bool),
		fail: make(map[string]error),
	}
}

func (f *fakeRunner) Run(
	ctx context.Context,
	name string,
	args []string,
	opts ...Option,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, cmd)
	for prefix, err := range f.fail {
		if strings.HasPrefix(cmd, prefix) {
			return "", err
		}
	}

	switch name {
	case "git":
		return f.git(args)
	case "docker":
		return f.docker(args)
	}
	return "", exitErr(cmd, 127, "command not found")
}

func (f *fakeRunner) git(args []string) (string, error) {
	cmd := "git " + strings.Join(args, " ")
	switch {
	case args[0] == "clone":
		return "", os.MkdirAll(args[len(args)-1], 0o755)
	case cmd == "git rev-parse HEAD":
		return f.repo.head + "\n", nil
	case args[0] == "fetch":
		return "", nil
	case len(args) == 3 && args[0] == "checkout" && args[1] == "--":
		f.repo.writeVersion(f.t)
		return "", nil
	case args[0] == "rev-parse" && args[1] == "--verify":
		ref := strings.TrimSuffix(strings.TrimPrefix(args[3], "refs/tags/"), "^{commit}")
		rev, ok := f.repo.tags[ref]
		if !ok {
			return "", exitErr(cmd, 1, "")
		}
		return rev + "\n", nil
	case args[0] == "checkout" && args[1] == "--quiet":
		target := args[2]
		if tag, ok := strings.CutPrefix(target, "tags/"); ok {
			rev, found := f.repo.tags[tag]
			if !found {
				return "", exitErr(cmd, 1, "pathspec did not match")
			}
			target = rev
		}
		if _, ok := f.repo.commits[target]; !ok {
			return "", exitErr(cmd, 128, "reference is not a tree")
		}
		f.repo.head = target
		f.repo.writeVersion(f.t)
		return "", nil
	}
	return "", exitErr(cmd, 1, "unexpected git invocation")
}

func (f *fakeRunner) docker(args []string) (string, error) {
	var project, sub string
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-p", "-f":
			if args[i] == "-p" {
				project = args[i+1]
			}
			i++
		default:
			if sub == "" {
				sub = args[i]
			}
		}
	}
	switch sub {
	case "up":
		f.up[project] = true
	case "down":
		f.up[project] = false
	case "ps":
		if f.ps != nil {
			return f.ps(project, f.up[project]), nil
		}
		if !f.up[project] {
			return "", nil
		}
		return `{"Name":"` + project + `-web-1","Service":"web","State":"running","Health":"healthy"}
{"Name":"` + project + `-worker-1","Service":"worker","State":"running","Health":""}
`, nil
	}
	return "", nil
}

func (f *fakeRunner) called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func exitErr(cmd string, code int, stderr string) error {
	return &CommandExecutionError{Command: cmd, ExitCode: code, Stderr: stderr}
}

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

type recordedStep struct {
	Step    Step
	Status  Status
	Message string
}

type recordingReporter struct {
	mu    sync.Mutex
	steps []recordedStep
}

func (r *recordingReporter) Report(_ context.Context, step Step, status Status, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, recordedStep{step, status, message})
}

type fixture struct {
	dir      string
	repo     *fakeRepo
	runner   *fakeRunner
	clock    *fakeClock
	pipeline *Pipeline
	config   ReleaseConfig
}

// newFixture sets up a working copy at v1.0.0 (rev aaa) with tag v2.0.0 (rev bbb)
// available, and production running v1.0.0.
func newFixture(t *testing.T) *fixture {
	dir := filepath.Join(t.TempDir(), "my-app")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultManifestFile), []byte(testManifest), 0o644))

	repo := &fakeRepo{
		dir:  dir,
		head: "aaa",
		commits: map[string]string{
			"aaa": packageJSON("0.0.0"),
			"bbb": packageJSON("0.0.0"),
		},
		tags: map[string]string{"v1.0.0": "aaa", "v2.0.0": "bbb"},
	}
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "package.json"), []byte(packageJSON("v1.0.0")), 0o644,
	))

	runner := newFakeRunner(t, repo)
	runner.up["my-app"] = true

	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	envs := NewEnvironments(runner, nil)
	monitor := NewMonitor(envs, nil)
	monitor.now = clock.Now
	monitor.sleep = clock.Sleep

	revisions := NewRevisions(runner, failingCloner{}, DefaultVersion(), nil)
	p := NewPipeline(revisions, envs, monitor, NewGate(), PipelineOptions{
		MaxWait:      30 * time.Second,
		PollInterval: 5 * time.Second,
	}, nil)

	return &fixture{
		dir:      dir,
		repo:     repo,
		runner:   runner,
		clock:    clock,
		pipeline: p,
		config:   ReleaseConfig{WorkingPath: dir, ManifestFile: DefaultManifestFile},
	}
}

func (fx *fixture) version(t *testing.T) string {
	tag, _, err := DefaultVersion().Read(fx.dir)
	require.NoError(t, err)
	return tag
}

type failingCloner struct{}

func (failingCloner) Clone(context.Context, string, string, *Auth) error {
	return fmt.Errorf("ssh clone unavailable")
}
