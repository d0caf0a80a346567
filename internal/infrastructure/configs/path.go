package configs

import (
	"flag"
	"os"

	"github.com/hilthontt/sketchroom/internal/infrastructure/env"
)

var defaultCandidates = []string{
	"./config.yaml",
	"./config.yml",
	"../../config.yaml", // keep for local dev
	"/etc/sketchroom/config.yaml",
	"/app/config.yaml", // common in Docker
}

// DetermineConfigPath resolves the config file from --config,
// SKETCHROOM_CONFIG or the first candidate that exists. An empty result
// means "run on defaults".
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	if !flag.Parsed() {
		flag.Parse()
	}

	return resolvePath(configPath, defaultCandidates)
}

func resolvePath(configPath string, candidates []string) string {
	if configPath == "" {
		configPath = env.GetString("SKETCHROOM_CONFIG", "")
	}

	if configPath == "" {
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
