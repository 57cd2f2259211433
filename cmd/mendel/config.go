package main

import (
	"flag"
	"fmt"

	configpkg "github.com/idudko/mendel/internal/config"
)

// Flags are the command line options. They take priority over the
// environment and the config file.
type Flags struct {
	ConfigFile    string
	Address       string
	Key           string
	TrustedSubnet string
	NATSURL       string
	LogLevel      string
	LogFile       string
	NoRun         bool
}

// parseFlags registers and parses the command line.
func parseFlags(fs *flag.FlagSet, args []string) (*Flags, error) {
	f := &Flags{}
	fs.StringVar(&f.ConfigFile, "c", "", "Path to config file")
	fs.StringVar(&f.ConfigFile, "config", "", "Path to config file")
	fs.StringVar(&f.ConfigFile, "f", "", "Path to config file")
	fs.StringVar(&f.Address, "a", "", "HTTP address to listen on")
	fs.StringVar(&f.Key, "k", "", "Key for verifying request signatures")
	fs.StringVar(&f.TrustedSubnet, "t", "", "Trusted subnet in CIDR notation")
	fs.StringVar(&f.NATSURL, "nats", "", "NATS server URL")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level")
	fs.StringVar(&f.LogFile, "l", "", "Log file")
	fs.BoolVar(&f.NoRun, "n", false, "Configure only, don't run")
	fs.BoolVar(&f.NoRun, "no-run", false, "Configure only, don't run")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// loadConfig reads the config file named by the flags, CONFIG or the
// default, then the environment, then applies the flags.
// Priority order (lowest to highest):
// 1. Default values
// 2. Config file
// 3. Environment variables
// 4. Command line flags
func loadConfig(f *Flags) (*configpkg.Config, error) {
	path := configpkg.GetConfigFilePath(f.ConfigFile)
	cfg, err := configpkg.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	configpkg.ApplyString(&cfg.HTTP.Address, f.Address)
	configpkg.ApplyString(&cfg.HTTP.Key, f.Key)
	configpkg.ApplyString(&cfg.HTTP.TrustedSubnet, f.TrustedSubnet)
	configpkg.ApplyString(&cfg.NATS.URL, f.NATSURL)
	configpkg.ApplyString(&cfg.Mendel.Logging.Level, f.LogLevel)
	configpkg.ApplyString(&cfg.Mendel.Logging.Filename, f.LogFile)
	return cfg, nil
}
