package release

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type StatusSource interface {
	Status(ctx context.Context, env Environment) ([]ContainerStatus, error)
}

type Monitor struct {
	source   StatusSource
	services func(manifestPath string) ([]string, error)
	log      *zap.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

func NewMonitor(source StatusSource, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		source:   source,
		services: Services,
		log:      log,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// AllHealthy reports whether every container is running and healthy (or has no
// health check), and every expected service has at least one container.
func AllHealthy(statuses []ContainerStatus, expected []string) bool {
	if len(statuses) == 0 {
		return false
	}
	seen := make(map[string]bool, len(statuses))
	for _, cs := range statuses {
		if !cs.Healthy() {
			return false
		}
		seen[cs.Service] = true
	}
	for _, svc := range expected {
		if !seen[svc] {
			return false
		}
	}
	return true
}

func (m *Monitor) WaitHealthy(
	ctx context.Context,
	env Environment,
	maxWait, pollInterval time.Duration,
) error {
	expected, err := m.services(env.Manifest)
	if err != nil {
		m.log.Warn("unable to read services from manifest",
			zap.String("manifest", env.Manifest),
			zap.Error(err),
		)
		expected = nil
	}

	start := m.now()
	deadline := start.Add(maxWait)
	var last []ContainerStatus
	var lastErr error
	for {
		statuses, err := m.source.Status(ctx, env)
		if err != nil {
			lastErr = err
			m.log.Debug("container status query failed", zap.Error(err))
		} else {
			last, lastErr = statuses, nil
			if AllHealthy(statuses, expected) {
				m.log.Info("environment healthy",
					zap.String("project", env.Project),
					zap.Duration("after", m.now().Sub(start)),
				)
				return nil
			}
			for _, cs := range statuses {
				if cs.State == "exited" {
					m.log.Info("container exited", zap.String("container", cs.String()))
				}
			}
		}

		if !m.now().Before(deadline) {
			return &HealthCheckTimeout{
				Project: env.Project,
				Waited:  m.now().Sub(start),
				Last:    last,
				Err:     lastErr,
			}
		}
		m.sleep(pollInterval)
	}
}
