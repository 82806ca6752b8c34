package main

import "github.com/emberscript/emberc/pkg/emberconfig"

// loadConfig reads --config if given, otherwise falls back to
// emberconfig.DefaultConfig().
func loadConfig() (*emberconfig.Config, error) {
	if configPath == "" {
		return emberconfig.DefaultConfig(), nil
	}
	return emberconfig.Load(configPath)
}
