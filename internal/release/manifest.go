package release

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

var restartPolicyRe = regexp.MustCompile(
	`(?m)^([ \t]*restart:[ \t]*)(["']?)(always|on-failure(?::\d+)?)(["']?)([ \t]*(?:#.*)?\r?)$`,
)

// DisableRestarts rewrites every restart: always / on-failure[:N] declaration to
// restart: "no". Everything else is passed through untouched.
func DisableRestarts(manifest []byte) []byte {
	return restartPolicyRe.ReplaceAll(manifest, []byte(`${1}"no"${5}`))
}

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Profiles []string `yaml:"profiles"`
	Scale    any      `yaml:"scale"`
	Deploy   struct {
		Replicas any `yaml:"replicas"`
	} `yaml:"deploy"`
}

// started reports whether docker compose up starts a container for the service
// given the active profiles.
func (s composeService) started(active []string) bool {
	if isZeroCount(s.Scale) || isZeroCount(s.Deploy.Replicas) {
		return false
	}
	if len(s.Profiles) == 0 || slices.Contains(active, "*") {
		return true
	}
	for _, p := range s.Profiles {
		if slices.Contains(active, p) {
			return true
		}
	}
	return false
}

func isZeroCount(v any) bool {
	switch n := v.(type) {
	case uint64:
		return n == 0
	case int64:
		return n == 0
	case int:
		return n == 0
	case float64:
		return n == 0
	case string:
		return strings.TrimSpace(n) == "0"
	}
	return false
}

// activeProfiles are the compose profiles enabled through COMPOSE_PROFILES,
// which the runner passes on to docker compose.
func activeProfiles() []string {
	var profiles []string
	for p := range strings.SplitSeq(os.Getenv("COMPOSE_PROFILES"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			profiles = append(profiles, p)
		}
	}
	return profiles
}

// Services lists the services of a compose manifest that docker compose up
// starts. Services behind an inactive profile or scaled to zero are left out.
func Services(manifestPath string) ([]string, error) {
	b, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, err
	}
	cf := new(composeFile)
	if err := yaml.Unmarshal(b, cf); err != nil {
		return nil, fmt.Errorf("err parsing %s: %w", manifestPath, err)
	}
	active := activeProfiles()
	names := make([]string, 0, len(cf.Services))
	for name, svc := range cf.Services {
		if svc.started(active) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}
