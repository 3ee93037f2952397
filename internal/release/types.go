package release

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	DefaultManifestFile = "docker-compose.yml"
	AppsPrefix          = "apps/"
	shadowSuffix        = ".test"
	shadowProjectSuffix = "-test"
)

type ReleaseConfig struct {
	WorkingPath  string `json:"working_path"`
	ManifestFile string `json:"manifest_file"`
}

// Normalize applies the manifest default and rewrites working paths under the
// reserved apps/ prefix into appsDir.
func (c ReleaseConfig) Normalize(appsDir string) (ReleaseConfig, error) {
	if c.ManifestFile == "" {
		c.ManifestFile = DefaultManifestFile
	}
	if c.WorkingPath == "" {
		return c, fmt.Errorf("working path is required")
	}
	p := c.WorkingPath
	if rest, ok := strings.CutPrefix(p, AppsPrefix); ok {
		p = filepath.Join(appsDir, rest)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return c, err
	}
	c.WorkingPath = abs
	return c, nil
}

func (c ReleaseConfig) ManifestPath() string {
	return filepath.Join(c.WorkingPath, c.ManifestFile)
}

type RevisionRecord struct {
	PreviousRevision   string
	PreviousVersionTag string
	HadVersionTag      bool
	NewVersionTag      string
}

type Auth struct {
	Username      string
	SSHPrivateKey []byte
}

type Trigger struct {
	Repository string
	Tag        string
	Config     ReleaseConfig
	Auth       *Auth
}

type Step int

const (
	StepInit Step = iota
	StepCloned
	StepCheckedOut
	StepShadowUp
	StepShadowHealthy
	StepPromoted
)

func (s Step) String() string {
	switch s {
	case StepInit:
		return "init"
	case StepCloned:
		return "cloned"
	case StepCheckedOut:
		return "checked out"
	case StepShadowUp:
		return "shadow up"
	case StepShadowHealthy:
		return "shadow healthy"
	case StepPromoted:
		return "promoted"
	}
	return fmt.Sprintf("step %d", int(s))
}

type Status string

const (
	StatusPending Status = ""
	StatusFailed  Status = "failed"
	StatusDone    Status = "done"
)

type Environment struct {
	Manifest string
	Project  string
}

var projectNameRe = regexp.MustCompile(`[^a-z0-9_-]+`)

// ProjectName mirrors how docker compose derives a default project name from a
// directory.
func ProjectName(workingPath string) string {
	name := strings.ToLower(filepath.Base(filepath.Clean(workingPath)))
	name = projectNameRe.ReplaceAllString(name, "")
	return strings.TrimLeft(name, "_-")
}

func Production(c ReleaseConfig) Environment {
	return Environment{Manifest: c.ManifestPath(), Project: ProjectName(c.WorkingPath)}
}

func Shadow(c ReleaseConfig) Environment {
	return Environment{
		Manifest: ShadowPath(c.ManifestPath()),
		Project:  ProjectName(c.WorkingPath) + shadowProjectSuffix,
	}
}

func ShadowPath(manifestPath string) string {
	ext := filepath.Ext(manifestPath)
	return strings.TrimSuffix(manifestPath, ext) + shadowSuffix + ext
}

type ContainerStatus struct {
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`
	Health  string `json:"Health"`
}

func (cs ContainerStatus) Healthy() bool {
	return cs.State == "running" && (cs.Health == "" || cs.Health == "healthy")
}

func (cs ContainerStatus) String() string {
	name := cs.Service
	if name == "" {
		name = cs.Name
	}
	if cs.Health == "" {
		return fmt.Sprintf("%s=%s", name, cs.State)
	}
	return fmt.Sprintf("%s=%s/%s", name, cs.State, cs.Health)
}
