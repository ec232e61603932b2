package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/convkit/abtest/pkg/stats"
)

type ServiceCfg struct {
	HTTPListen              string `yaml:"http_listen"`
	MetricsPath             string `yaml:"metrics_path"`
	HealthzPath             string `yaml:"healthz_path"`
	DryRun                  bool   `yaml:"dry_run"`
	LogLevel                string `yaml:"log_level"`
	DataDir                 string `yaml:"data_dir"`
	ArchiveDir              string `yaml:"archive_dir"`
	Concurrency             int    `yaml:"concurrency"`
	EvaluateScheduleSeconds int    `yaml:"evaluate_schedule_seconds"`
}

type FeedsCfg struct {
	Sources              []string `yaml:"sources"`
	FetchIntervalSeconds int      `yaml:"fetch_interval_seconds"`
	PerSourceLimit       int      `yaml:"per_source_limit"`
}

type TestCfg struct {
	MinSampleSize    int      `yaml:"min_sample_size"`
	ZCritical        float64  `yaml:"z_critical"`
	Confidence       float64  `yaml:"confidence"`
	MaxExposures     int      `yaml:"max_exposures"`
	RecheckIntervals []string `yaml:"recheck_intervals"`
}

type APICfg struct {
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

type Config struct {
	Service ServiceCfg `yaml:"service"`
	Feeds   FeedsCfg   `yaml:"feeds"`
	Test    TestCfg    `yaml:"test"`
	API     APICfg     `yaml:"api"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if c.Service.Concurrency <= 0 {
		c.Service.Concurrency = 100
	}
	if c.Service.EvaluateScheduleSeconds <= 0 {
		c.Service.EvaluateScheduleSeconds = 60
	}
	if c.Test.MinSampleSize <= 0 {
		c.Test.MinSampleSize = 5
	}
	return &c, nil
}

// Validate rejects configs that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.Service.HTTPListen == "" {
		return fmt.Errorf("service.http_listen is required")
	}
	if c.Test.Confidence != 0 && (c.Test.Confidence <= 0 || c.Test.Confidence >= 1) {
		return fmt.Errorf("test.confidence must be in (0,1), got %v", c.Test.Confidence)
	}
	if c.Test.ZCritical < 0 {
		return fmt.Errorf("test.z_critical must be non-negative, got %v", c.Test.ZCritical)
	}
	return nil
}

// Params resolves the test parameters: an explicit z_critical wins, otherwise
// z is derived from the confidence level, otherwise the 95% default applies.
func (c *Config) Params() stats.Params {
	p := stats.Params{MinSampleSize: c.Test.MinSampleSize, ZCritical: c.Test.ZCritical}
	if p.MinSampleSize <= 0 {
		p.MinSampleSize = 5
	}
	if p.ZCritical == 0 {
		if c.Test.Confidence > 0 && c.Test.Confidence < 1 {
			p.ZCritical = stats.ZForConfidence(c.Test.Confidence)
		} else {
			p.ZCritical = stats.Z95
		}
	}
	return p
}

func (c *Config) RecheckDurations() []time.Duration {
	var out []time.Duration
	for _, s := range c.Test.RecheckIntervals {
		if d, err := time.ParseDuration(s); err == nil {
			out = append(out, d)
		}
	}
	return out
}
