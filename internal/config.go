package internal

import (
	"encoding/json"
	"os"
	"time"

	"github.com/haatos/simple-release/internal/util"
)

var Config *Configuration

type SecondsDuration time.Duration

func NewSecondsDuration(seconds int64) SecondsDuration {
	return SecondsDuration(time.Duration(seconds) * time.Second)
}

func (sd SecondsDuration) Duration() time.Duration {
	return time.Duration(sd)
}

func (sd SecondsDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(sd).Seconds())
}

func (sd *SecondsDuration) UnmarshalJSON(data []byte) error {
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return err
	}
	*sd = SecondsDuration(seconds * float64(time.Second))
	return nil
}

type Configuration struct {
	QueueSize            int64           `json:"queue_size"`
	HealthMaxWait        SecondsDuration `json:"health_max_wait_seconds"`
	HealthPollInterval   SecondsDuration `json:"health_poll_seconds"`
	ReleaseRetentionDays int64           `json:"release_retention_days"`
}

func DefaultConfiguration() *Configuration {
	return &Configuration{
		QueueSize:            3,
		HealthMaxWait:        NewSecondsDuration(120),
		HealthPollInterval:   NewSecondsDuration(5),
		ReleaseRetentionDays: 90,
	}
}

// RetentionPeriod is zero when release history is kept forever.
func (c *Configuration) RetentionPeriod() time.Duration {
	if c.ReleaseRetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.ReleaseRetentionDays) * 24 * time.Hour
}

// LoadConfiguration reads path into Config, writing the defaults to path when
// it does not exist yet. Missing keys keep their defaults.
func LoadConfiguration(path string) (*Configuration, error) {
	config := DefaultConfiguration()

	exists, _ := util.PathExists(path)
	if !exists {
		if err := writeConfiguration(path, config); err != nil {
			return nil, err
		}
		Config = config
		return config, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, config); err != nil {
		return nil, err
	}
	if config.QueueSize < 1 {
		config.QueueSize = 1
	}
	Config = config
	return config, nil
}

func UpdateConfiguration(path string, config *Configuration) error {
	if err := writeConfiguration(path, config); err != nil {
		return err
	}
	Config = config
	return nil
}

func writeConfiguration(path string, config *Configuration) error {
	b, err := json.MarshalIndent(config, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
