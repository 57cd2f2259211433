package main

import (
	"flag"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	configpkg "github.com/idudko/mendel/internal/config"
)

const (
	defaultPollInterval   = 2 * time.Second
	defaultReportInterval = 10 * time.Second
	defaultTopic          = "agent/host"
)

// Config is the agent configuration. The YAML file is optional.
type Config struct {
	Address        string        `yaml:"address" env:"ADDRESS"`
	Topic          string        `yaml:"topic" env:"TOPIC"`
	PollInterval   time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	ReportInterval time.Duration `yaml:"report_interval" env:"REPORT_INTERVAL"`
	Key            string        `yaml:"key" env:"KEY"`
	RateLimit      int           `yaml:"rate_limit" env:"RATE_LIMIT"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL"`
}

type flags struct {
	configFile     string
	address        string
	topic          string
	pollInterval   string
	reportInterval string
	key            string
	rateLimit      int
}

func defaultConfig() Config {
	return Config{
		Address:        configpkg.DefaultAddress,
		Topic:          defaultTopic,
		PollInterval:   defaultPollInterval,
		ReportInterval: defaultReportInterval,
		RateLimit:      1,
		LogLevel:       configpkg.DefaultLogLevel,
	}
}

// loadConfig builds the configuration from all sources.
// Priority order (lowest to highest):
// 1. Default values
// 2. YAML config file (if provided via -c or -config)
// 3. Environment variables
// 4. Command line flags
func loadConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	var f flags
	fs.StringVar(&f.configFile, "c", "", "Path to config file")
	fs.StringVar(&f.configFile, "config", "", "Path to config file")
	fs.StringVar(&f.address, "a", "", "Address of the mendel HTTP endpoint")
	fs.StringVar(&f.topic, "topic", "", "Topic the reports are ingested under")
	fs.StringVar(&f.pollInterval, "p", "", "Poll interval, seconds or a duration")
	fs.StringVar(&f.reportInterval, "r", "", "Report interval, seconds or a duration")
	fs.StringVar(&f.key, "k", "", "Key for signing requests")
	fs.IntVar(&f.rateLimit, "l", 0, "Maximum concurrent reports")
	fs.Usage = cleanenv.FUsage(fs.Output(), &cfg, nil, fs.Usage)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	var err error
	if f.configFile != "" {
		err = cleanenv.ReadConfig(f.configFile, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return cfg, err
	}

	configpkg.ApplyString(&cfg.Address, f.address)
	configpkg.ApplyString(&cfg.Topic, f.topic)
	configpkg.ApplyString(&cfg.Key, f.key)
	if f.pollInterval != "" {
		if cfg.PollInterval, err = configpkg.ParseDuration(f.pollInterval); err != nil {
			return cfg, err
		}
	}
	if f.reportInterval != "" {
		if cfg.ReportInterval, err = configpkg.ParseDuration(f.reportInterval); err != nil {
			return cfg, err
		}
	}
	if f.rateLimit > 0 {
		cfg.RateLimit = f.rateLimit
	}
	if cfg.RateLimit < 1 {
		cfg.RateLimit = 1
	}
	return cfg, nil
}
