package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

func structProvider(cfg *EngineConfig) koanf.Provider {
	return structs.Provider(cfg, "yaml")
}

func yamlParser() koanf.Parser {
	return yaml.Parser()
}

// envKeyTransform turns TRIAGE_WORKFLOW__WORKER_COUNT into
// workflow.worker_count, matching the yaml tags in EngineConfig.
func envKeyTransform(prefix string) func(string) string {
	return func(key string) string {
		trimmed := strings.TrimPrefix(key, prefix)
		lower := strings.ToLower(trimmed)
		replaced := strings.ReplaceAll(lower, "__", ".")
		return replaced
	}
}
