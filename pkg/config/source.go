// pkg/config/source.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Load priorities of the built-in sources. A custom source picks a value in
// between to slot in, e.g. a site-wide file at 15.
const (
	PriorityDefaults = 10
	PriorityFile     = 20
	PriorityEnv      = 30
	PriorityFlags    = 40
)

// ConfigSource is one layer of configuration. LoadWithSources applies layers
// from the lowest priority to the highest, so later layers win.
type ConfigSource interface {
	Name() string
	Priority() int
	Load(k *koanf.Koanf) error
}

// DefaultSource seeds every known key with its DefaultConfig value.
type DefaultSource struct{}

func (s *DefaultSource) Name() string  { return "defaults" }
func (s *DefaultSource) Priority() int { return PriorityDefaults }

func (s *DefaultSource) Load(k *koanf.Koanf) error {
	if err := k.Load(confmap.Provider(DefaultConfigAsMap(), "."), nil); err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}
	return nil
}

// FileSource reads a YAML file. An empty Path or a missing file adds nothing.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string  { return "file:" + s.Path }
func (s *FileSource) Priority() int { return PriorityFile }

func (s *FileSource) Load(k *koanf.Koanf) error {
	if s.Path == "" {
		return nil
	}

	info, err := os.Stat(s.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("stat config file %s: %w", s.Path, err)
	case info.IsDir():
		return fmt.Errorf("config file %s is a directory", s.Path)
	}

	if err := k.Load(file.Provider(s.Path), yaml.Parser()); err != nil {
		return fmt.Errorf("parse config file %s: %w", s.Path, err)
	}
	return nil
}

// EnvPrefix is the prefix of environment variables read by EnvSource.
const EnvPrefix = "SSLPRINT_"

// listKeys hold comma separated values when set from the environment.
var listKeys = map[string]bool{
	"capture.ports": true,
}

// EnvSource maps prefixed variables onto known keys, spelling dots as
// underscores:
//
//	SSLPRINT_LOG_LEVEL             log.level
//	SSLPRINT_CAPTURE_MAX_FLOW_DATA capture.max_flow_data
//	SSLPRINT_CAPTURE_PORTS=443,993 capture.ports
//
// Variables that name no known key are ignored.
type EnvSource struct {
	Prefix string // defaults to EnvPrefix
}

func (s *EnvSource) Name() string  { return "env" }
func (s *EnvSource) Priority() int { return PriorityEnv }

func (s *EnvSource) Load(k *koanf.Koanf) error {
	prefix := s.Prefix
	if prefix == "" {
		prefix = EnvPrefix
	}

	byEnv := make(map[string]string)
	for key := range DefaultConfigAsMap() {
		byEnv[strings.ToUpper(prefix+strings.ReplaceAll(key, ".", "_"))] = key
	}

	provider := env.ProviderWithValue(prefix, ".", func(name, value string) (string, interface{}) {
		key, ok := byEnv[strings.ToUpper(name)]
		if !ok {
			return "", nil
		}
		if listKeys[key] {
			var items []string
			for _, item := range strings.Split(value, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			return key, items
		}
		return key, value
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	return nil
}

// FlagSource applies flags the user actually set. Flags listed in flagKeys
// are renamed to their key; other flags are taken only when their name is
// already a dotted key. Debug forces log.level to debug.
type FlagSource struct {
	Flags *pflag.FlagSet
	Debug bool
}

func (s *FlagSource) Name() string  { return "flags" }
func (s *FlagSource) Priority() int { return PriorityFlags }

func (s *FlagSource) Load(k *koanf.Koanf) error {
	if s.Flags != nil {
		provider := posflag.ProviderWithFlag(s.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key := flagKey(f.Name)
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(s.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return fmt.Errorf("load flags: %w", err)
		}
	}

	if s.Debug {
		return k.Set("log.level", "debug")
	}
	return nil
}

func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	if strings.Contains(name, ".") {
		return name
	}
	return ""
}

// DefaultSources returns defaults, file, environment and flags.
func DefaultSources(configPath string, flags *pflag.FlagSet, debug bool) []ConfigSource {
	return []ConfigSource{
		&DefaultSource{},
		&FileSource{Path: configPath},
		&EnvSource{Prefix: EnvPrefix},
		&FlagSource{Flags: flags, Debug: debug},
	}
}
