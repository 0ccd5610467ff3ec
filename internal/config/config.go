// Package config holds the configuration of the jobsched command.
//
// Values come from struct defaults, then an optional config file, then
// JOBSCHED_* environment variables, then command-line flags.
//
//	┌──────────────────┬─────────────┬──────────────────────────────────────────┐
//	│ Key              │ Default     │ Description                              │
//	├──────────────────┼─────────────┼──────────────────────────────────────────┤
//	│ groups           │ "1:2,2:1"   │ Worker groups as mask:count pairs        │
//	│ queue-capacity   │ 1024        │ Per-worker queue capacity                │
//	│ full-policy      │ "overwrite" │ "overwrite" or "reject"                  │
//	│ match            │ "subset"    │ "subset" or "tier"                       │
//	│ pin              │ false       │ Pin workers to CPUs                      │
//	│ jobs             │ 1000        │ Number of synthetic jobs                 │
//	│ job-type         │ "1"         │ Type of the synthetic jobs               │
//	│ work             │ 100µs       │ Time each synthetic job sleeps           │
//	│ submitters       │ 1           │ Concurrent submitting goroutines         │
//	│ start-first      │ false       │ Start workers before submitting          │
//	│ shutdown-timeout │ 30s         │ Upper bound for draining on shutdown     │
//	│ log-level        │ "info"      │ debug, info, warn, error                 │
//	│ log-format       │ "console"   │ "console" or "json"                      │
//	└──────────────────┴─────────────┴──────────────────────────────────────────┘
//
// Masks accept Go integer literal syntax: "0b101", "0x5" and "5" are
// the same mask.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/Andrej220/go-utils/jobsched"
)

const EnvPrefix = "JOBSCHED"

var ErrInvalidConfig = errors.New("invalid configuration")

type Configuration struct {
	Groups          string        `mapstructure:"groups" default:"1:2,2:1"`
	QueueCapacity   int           `mapstructure:"queue-capacity" default:"1024"`
	FullPolicy      string        `mapstructure:"full-policy" default:"overwrite"`
	Match           string        `mapstructure:"match" default:"subset"`
	Pin             bool          `mapstructure:"pin"`
	Jobs            int           `mapstructure:"jobs" default:"1000"`
	JobType         string        `mapstructure:"job-type" default:"1"`
	Work            time.Duration `mapstructure:"work" default:"100us"`
	Submitters      int           `mapstructure:"submitters" default:"1"`
	StartFirst      bool          `mapstructure:"start-first"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" default:"30s"`
	LogLevel        string        `mapstructure:"log-level" default:"info"`
	LogFormat       string        `mapstructure:"log-format" default:"console"`
}

// Default returns a Configuration with every default applied.
func Default() Configuration {
	var c Configuration
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config: bad default tags: %v", err))
	}
	return c
}

// Load reads configuration from v on top of the defaults. If file is
// not empty it is read first; env and bound flags override it.
func Load(v *viper.Viper, file string) (Configuration, error) {
	cfg := Default()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks every field and reports all problems at once.
func (c Configuration) Validate() error {
	var err error
	if _, e := ParseGroups(c.Groups); e != nil {
		err = multierr.Append(err, e)
	}
	if _, e := ParseMask(c.JobType); e != nil {
		err = multierr.Append(err, fmt.Errorf("%w: job-type: %v", ErrInvalidConfig, e))
	}
	if _, e := parseFullPolicy(c.FullPolicy); e != nil {
		err = multierr.Append(err, e)
	}
	if _, e := parseMatch(c.Match); e != nil {
		err = multierr.Append(err, e)
	}
	if c.QueueCapacity <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: queue-capacity must be positive", ErrInvalidConfig))
	}
	if c.Jobs < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: jobs must not be negative", ErrInvalidConfig))
	}
	if c.Submitters <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: submitters must be positive", ErrInvalidConfig))
	}
	if c.Work < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: work must not be negative", ErrInvalidConfig))
	}
	return err
}

// SchedulerOptions converts c into scheduler options.
func (c Configuration) SchedulerOptions() (jobsched.Options, error) {
	groups, err := ParseGroups(c.Groups)
	if err != nil {
		return jobsched.Options{}, err
	}
	fp, err := parseFullPolicy(c.FullPolicy)
	if err != nil {
		return jobsched.Options{}, err
	}
	match, err := parseMatch(c.Match)
	if err != nil {
		return jobsched.Options{}, err
	}
	return jobsched.Options{
		Groups:        groups,
		QueueCapacity: c.QueueCapacity,
		FullPolicy:    fp,
		Match:         match,
		PinWorkers:    c.Pin,
	}, nil
}

// ParseGroups parses "mask:count[,mask:count...]".
func ParseGroups(s string) ([]jobsched.WorkerGroup, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: groups must not be empty", ErrInvalidConfig)
	}
	var groups []jobsched.WorkerGroup
	for _, part := range strings.Split(s, ",") {
		maskStr, countStr, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("%w: group %q: want mask:count", ErrInvalidConfig, part)
		}
		mask, err := ParseMask(maskStr)
		if err != nil {
			return nil, fmt.Errorf("%w: group %q: %v", ErrInvalidConfig, part, err)
		}
		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("%w: group %q: count must be a positive integer", ErrInvalidConfig, part)
		}
		groups = append(groups, jobsched.WorkerGroup{Mask: mask, Count: count})
	}
	return groups, nil
}

// ParseMask parses a mask or job type in Go integer literal syntax.
func ParseMask(s string) (jobsched.JobType, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad mask %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("bad mask %q: must not be zero", s)
	}
	return jobsched.JobType(v), nil
}

func parseFullPolicy(s string) (jobsched.FullPolicy, error) {
	switch strings.ToLower(s) {
	case jobsched.OverwriteOldest.String():
		return jobsched.OverwriteOldest, nil
	case jobsched.RejectNew.String():
		return jobsched.RejectNew, nil
	default:
		return 0, fmt.Errorf("%w: full-policy %q: want overwrite or reject", ErrInvalidConfig, s)
	}
}

func parseMatch(s string) (jobsched.MatchRule, error) {
	switch strings.ToLower(s) {
	case jobsched.MatchSubset.String():
		return jobsched.MatchSubset, nil
	case jobsched.MatchTier.String():
		return jobsched.MatchTier, nil
	default:
		return 0, fmt.Errorf("%w: match %q: want subset or tier", ErrInvalidConfig, s)
	}
}
