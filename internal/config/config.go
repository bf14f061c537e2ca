// Package config loads the simulator YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/animus-labs/smsc-go/internal/platform/env"
)

// OpDateLayout is the layout of the operation date, e.g. "2024 06 10".
const OpDateLayout = "2006 01 02"

const (
	DefaultStagger          = 30 * time.Second
	DefaultCompletionPhrase = "successfully terminated"
	DefaultEngineLog        = "mohid_stdout.dat"
)

type Config struct {
	OpDate         string          `yaml:"opdate"`
	StartTime      float64         `yaml:"startime"`
	RestartWeekday string          `yaml:"restart_weekday"`
	Stagger        time.Duration   `yaml:"stagger"`
	Engine         EngineConfig    `yaml:"engine"`
	Tools          ToolsConfig     `yaml:"tools"`
	Notify         NotifyConfig    `yaml:"notify"`
	Forcing        ForcingConfig   `yaml:"forcing"`
	Restart        *PipelineConfig `yaml:"restart"`
	Forecast       *PipelineConfig `yaml:"forecast"`
}

// ToolConfig is an external executable run inside Dir.
type ToolConfig struct {
	Dir           string   `yaml:"dir"`
	Executable    string   `yaml:"executable"`
	RequiredFiles []string `yaml:"required_files"`
	LogName       string   `yaml:"log_name"`
}

func (t ToolConfig) Configured() bool {
	return strings.TrimSpace(t.Dir) != "" && strings.TrimSpace(t.Executable) != ""
}

type EngineConfig struct {
	ToolConfig       `yaml:",inline"`
	CompletionPhrase string `yaml:"completion_phrase"`
}

type ToolsConfig struct {
	Extractor ToolConfig      `yaml:"extractor"`
	Merger    ToolConfig      `yaml:"merger"`
	TimeIndex TimeIndexConfig `yaml:"time_index"`
}

// TimeIndexConfig is a command printing one instant per line for a file.
type TimeIndexConfig struct {
	Program string   `yaml:"program"`
	Args    []string `yaml:"args"`
}

type NotifyConfig struct {
	MailTo   []string `yaml:"mailto"`
	From     string   `yaml:"from"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Subject  string   `yaml:"subject"`
}

func (n NotifyConfig) Enabled() bool {
	return strings.TrimSpace(n.Host) != "" && len(n.MailTo) > 0
}

type ForcingConfig struct {
	Keep    int             `yaml:"keep"`
	Sources []ForcingSource `yaml:"sources"`
}

// ForcingSource is a provider product downloaded before simulations run.
type ForcingSource struct {
	Name        string   `yaml:"name"`
	PublishHour float64  `yaml:"publish_hour"`
	DestDir     string   `yaml:"dest_dir"`
	Ext         string   `yaml:"ext"`
	Hindcast    int      `yaml:"hindcast"`
	Forecast    int      `yaml:"forecast"`
	URLs        []string `yaml:"urls"`
}

// PipelineConfig describes one staged simulation (restart or forecast).
type PipelineConfig struct {
	Name            string      `yaml:"name"`
	Hindcast        []int       `yaml:"hindcast"`
	Forecast        []int       `yaml:"forecast"`
	Domains         []string    `yaml:"domains"`
	DomainTimesteps [][]float64 `yaml:"domdts"`
	GMTReference    int         `yaml:"gmtreference"`
	GeneralData     string      `yaml:"generaldata"`
	OutDir          string      `yaml:"outdir"`
	ForcingPatterns []string    `yaml:"fsrch"`
	KeepAlive       bool        `yaml:"keepalive"`
	Continuous      []string    `yaml:"continuous"`
	Initials        bool        `yaml:"initials"`
	KeepResults     int         `yaml:"keepres"`
	LastFins        *bool       `yaml:"lastfins"`
	Level0          bool        `yaml:"level0"`
	PostOps         bool        `yaml:"postops"`
	External        []string    `yaml:"extdisk"`
}

// UseLastFins defaults to true.
func (p PipelineConfig) UseLastFins() bool {
	return p.LastFins == nil || *p.LastFins
}

// Load reads path, applies environment overrides and defaults.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML, rejecting unknown keys.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// ApplyEnv overlays SMSC_* environment values.
func (c *Config) ApplyEnv() error {
	if opdate, ok, err := env.Date("SMSC_OPDATE", OpDateLayout); err != nil {
		return err
	} else if ok {
		c.OpDate = opdate.Format(OpDateLayout)
	}
	c.Notify.Password = env.String("SMSC_SMTP_PASSWORD", c.Notify.Password)
	c.Notify.MailTo = env.List("SMSC_NOTIFY_MAILTO", c.Notify.MailTo)
	return nil
}

func (c *Config) applyDefaults() {
	if c.Stagger <= 0 {
		c.Stagger = DefaultStagger
	}
	if strings.TrimSpace(c.Engine.CompletionPhrase) == "" {
		c.Engine.CompletionPhrase = DefaultCompletionPhrase
	}
	if strings.TrimSpace(c.Engine.LogName) == "" {
		c.Engine.LogName = DefaultEngineLog
	}
	if c.Notify.Port == 0 {
		c.Notify.Port = 587
	}
	if c.Restart != nil && strings.TrimSpace(c.Restart.Name) == "" {
		c.Restart.Name = "restart"
	}
	if c.Forecast != nil && strings.TrimSpace(c.Forecast.Name) == "" {
		c.Forecast.Name = "forecast"
	}
	for i := range c.Forcing.Sources {
		if c.Forcing.Sources[i].Ext == "" {
			c.Forcing.Sources[i].Ext = ".nc"
		}
	}
}

// OperationDate resolves the configured operation date, defaulting to the
// day of now. A date after today is a configuration error.
func (c Config) OperationDate(now time.Time) (time.Time, error) {
	today := truncateDay(now.UTC())
	if strings.TrimSpace(c.OpDate) == "" {
		return today, nil
	}
	opdate, err := time.ParseInLocation(OpDateLayout, strings.TrimSpace(c.OpDate), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("opdate %q: %w", c.OpDate, err)
	}
	if opdate.After(today) {
		return time.Time{}, fmt.Errorf("opdate %s is in the future", opdate.Format("2006-01-02"))
	}
	return opdate, nil
}

// StartOffset is the start-of-day offset applied to the operation date.
func (c Config) StartOffset() time.Duration {
	return time.Duration(c.StartTime * float64(time.Hour))
}

// RunRestart reports whether the restart pipeline is due on opdate.
func (c Config) RunRestart(opdate time.Time) bool {
	if c.Restart == nil {
		return false
	}
	if strings.TrimSpace(c.RestartWeekday) == "" {
		return true
	}
	wd, ok := parseWeekday(c.RestartWeekday)
	return ok && opdate.Weekday() == wd
}

func parseWeekday(value string) (time.Weekday, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || v == name[:3] {
			return d, true
		}
	}
	return 0, false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
