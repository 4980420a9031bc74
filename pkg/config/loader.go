package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoaderOptions controls where EngineConfig is read from. The teacher's
// loader also supports consul/etcd/zookeeper providers; this engine has
// no cross-process coordination surface, so only file+env are wired
// (see DESIGN.md).
type LoaderOptions struct {
	// Path to a YAML file. Empty skips the file layer and loads
	// defaults + env only.
	Path string
	// EnvPrefix is stripped from environment variables and the rest
	// lower-cased and "__" replaced with "." to address nested fields,
	// e.g. TRIAGE_WORKFLOW__WORKER_COUNT=8.
	EnvPrefix string
}

var validate = validator.New()

// Load resolves an EngineConfig from defaults, an optional YAML file,
// and environment overrides, in that precedence order, then validates
// the result.
func Load(opts LoaderOptions) (*EngineConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yamlParser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", opts.Path, err)
		}
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "TRIAGE_"
	}
	if err := k.Load(env.Provider(prefix, ".", envKeyTransform(prefix)), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := &EngineConfig{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}
