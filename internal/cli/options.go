package cli

import (
	"github.com/aretw0/canopy/internal/config"
)

// Options collects everything the commands need to build a machine.
// Flags override values loaded from the environment.
type Options struct {
	Files        []string
	Verify       bool
	Debug        bool
	InitialState string
	Name         string
	LogLevel     string
	LogFormat    string
}

// OptionsFromConfig seeds Options from the environment configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Files:        cfg.TreeFiles,
		Verify:       cfg.Verify,
		InitialState: cfg.InitialState,
		Name:         cfg.MachineName,
		LogLevel:     cfg.LogLevel,
		LogFormat:    cfg.LogFormat,
	}
}
