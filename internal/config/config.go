package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Default settings.
const (
	DefaultConfigFile = "mendel.yaml"
	DefaultAddress    = "localhost:8080"
	DefaultLogLevel   = "info"
	DefaultNATSName   = "mendel"
)

var (
	ErrNoValues   = errors.New("no values configured")
	ErrNoHandlers = errors.New("no handlers configured")
)

// Config is the whole mendel configuration file.
type Config struct {
	Mendel   Mendel    `yaml:"mendel"`
	NATS     NATS      `yaml:"nats"`
	HTTP     HTTP      `yaml:"http"`
	Pipeline Pipeline  `yaml:"pipeline"`
	Publish  Publish   `yaml:"publish"`
	Handlers []Handler `yaml:"handlers"`
	Topics   []Topic   `yaml:"topics"`
	Values   []Value   `yaml:"values"`
	Actions  []Action  `yaml:"actions"`
}

type Mendel struct {
	Logging Logging `yaml:"logging"`
}

type Logging struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Filename string `yaml:"filename" env:"LOG_FILE"`
}

type NATS struct {
	URL           string        `yaml:"url" env:"NATS_URL"`
	Name          string        `yaml:"name" env:"NATS_NAME" env-default:"mendel"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" env:"NATS_RECONNECT_WAIT" env-default:"2s"`
	MaxReconnects int           `yaml:"max_reconnects" env:"NATS_MAX_RECONNECTS" env-default:"-1"`
}

type HTTP struct {
	Address       string `yaml:"address" env:"ADDRESS" env-default:"localhost:8080"`
	Key           string `yaml:"key" env:"KEY"`
	TrustedSubnet string `yaml:"trusted_subnet" env:"TRUSTED_SUBNET"`
}

type Pipeline struct {
	QueueSlots int `yaml:"queue_slots" env:"QUEUE_SLOTS" env-default:"16"`
	Spins      int `yaml:"spins" env:"PIPELINE_SPINS" env-default:"400"`
}

// Publish selects the sinks action results are written to. Results always go
// to NATS when a connection is configured.
type Publish struct {
	File    string `yaml:"file" env:"PUBLISH_FILE"`
	Webhook string `yaml:"webhook" env:"PUBLISH_WEBHOOK"`
	Log     bool   `yaml:"log" env:"PUBLISH_LOG"`
}

// Handler decodes message payloads. Type is one of json, value or text.
type Handler struct {
	ID         string     `yaml:"id"`
	Type       string     `yaml:"type"`
	Properties Properties `yaml:"properties"`
}

// Topic routes a subject pattern to handlers.
type Topic struct {
	Subject  string   `yaml:"subject"`
	Handlers []string `yaml:"handlers"`
}

// Value declares a metric id and where its data comes from.
type Value struct {
	Value    string         `yaml:"value"`
	Handlers []ValueHandler `yaml:"handlers"`
}

type ValueHandler struct {
	HandlerID    string        `yaml:"handler_id"`
	Property     string        `yaml:"property"`
	LabelActions []LabelAction `yaml:"label_actions"`
	ValueActions []ValueAction `yaml:"value_actions"`
}

type LabelAction struct {
	Action  string       `yaml:"action"`
	Source  string       `yaml:"source"`
	Target  string       `yaml:"target"`
	Replace Replacements `yaml:"replace"`
}

type ValueAction struct {
	Action string       `yaml:"action"`
	Values []SwitchCase `yaml:"values"`
}

// SwitchCase is either an input/output pair or a default.
type SwitchCase struct {
	Input   *string `yaml:"input"`
	Output  *string `yaml:"output"`
	Default *string `yaml:"default"`
}

// Action declares a stateful action. Only the kalman type exists.
type Action struct {
	Type              string       `yaml:"type"`
	ActionID          string       `yaml:"action_id"`
	Values            KalmanValues `yaml:"values"`
	Output            ActionOutput `yaml:"output"`
	ProcessNoise      float64      `yaml:"process_noise"`
	InitialCovariance float64      `yaml:"initial_covariance"`
}

type ActionOutput struct {
	Topic   string `yaml:"topic"`
	ValueID string `yaml:"value_id"`
}

// Load reads the YAML file at path and then the environment. An empty path
// reads the environment only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.normalize()
	return &cfg, nil
}

// Validate reports configuration that cannot produce any metric.
func (c *Config) Validate() error {
	if len(c.Values) == 0 {
		return ErrNoValues
	}
	if len(c.Handlers) == 0 {
		return ErrNoHandlers
	}
	return nil
}

func (c *Config) normalize() {
	c.Mendel.Logging.Level = strings.ToLower(strings.TrimSpace(c.Mendel.Logging.Level))
	for i := range c.Handlers {
		h := &c.Handlers[i]
		h.ID = strings.TrimSpace(h.ID)
		h.Type = strings.ToLower(strings.TrimSpace(h.Type))
	}
	for i := range c.Topics {
		c.Topics[i].Subject = strings.TrimSpace(c.Topics[i].Subject)
	}
	for i := range c.Values {
		v := &c.Values[i]
		v.Value = strings.TrimSpace(v.Value)
		for j := range v.Handlers {
			vh := &v.Handlers[j]
			vh.HandlerID = strings.TrimSpace(vh.HandlerID)
			vh.Property = strings.TrimSpace(vh.Property)
			for k := range vh.LabelActions {
				la := &vh.LabelActions[k]
				la.Action = strings.ToLower(strings.TrimSpace(la.Action))
				la.Source = strings.TrimSpace(la.Source)
				la.Target = strings.TrimSpace(la.Target)
			}
			for k := range vh.ValueActions {
				va := &vh.ValueActions[k]
				va.Action = strings.ToLower(strings.TrimSpace(va.Action))
			}
		}
	}
	for i := range c.Actions {
		a := &c.Actions[i]
		a.Type = strings.ToLower(strings.TrimSpace(a.Type))
		a.ActionID = strings.TrimSpace(a.ActionID)
	}
}

// ParseDuration parses a duration such as "10s" or "1m". A bare number is
// read as seconds.
//
// Example:
//
//	d, err := config.ParseDuration("10")
//	if err != nil {
//	    return err
//	}
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("duration must be positive, got %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", d)
	}
	return d, nil
}

// GetConfigFilePath returns the config file from the flag, the CONFIG
// environment variable, or the default.
func GetConfigFilePath(configFlag string) string {
	if configFlag != "" {
		return configFlag
	}
	if env := os.Getenv("CONFIG"); env != "" {
		return env
	}
	return DefaultConfigFile
}

// ApplyStringIfDefault applies value only if current still holds defaultValue.
//
// Example:
//
//	ApplyStringIfDefault(&cfg.HTTP.Address, config.DefaultAddress, *addressFlag)
func ApplyStringIfDefault(current *string, defaultValue, value string) {
	if value != "" && *current == defaultValue {
		*current = value
	}
}

// ApplyString overrides current with a non-empty value.
func ApplyString(current *string, value string) {
	if value != "" {
		*current = value
	}
}

// ApplyDurationIfDefault parses value and applies it only if current still
// holds defaultValue. Unparsable values are ignored.
func ApplyDurationIfDefault(current *time.Duration, defaultValue time.Duration, value string) {
	if value != "" && *current == defaultValue {
		if d, err := ParseDuration(value); err == nil {
			*current = d
		}
	}
}

// ApplyBoolIfDefault applies value only if it is true and current is false.
func ApplyBoolIfDefault(current *bool, value bool) {
	if value && !*current {
		*current = value
	}
}
