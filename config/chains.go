package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/upb/llm-gateway/services/failover"
	"github.com/upb/llm-gateway/utils"
)

// ChainSet holds the fallback chains loaded from the chain definition file,
// keyed by chain name, together with the resolved per-chain options.
type ChainSet struct {
	chains       map[string]*failover.Chain
	options      map[string]failover.Options
	defaultChain string
}

// chainsFile mirrors the YAML layout of the chain definition file.
type chainsFile struct {
	Defaults     optionsSpec          `yaml:"defaults"`
	DefaultChain string               `yaml:"default_chain"`
	Chains       map[string]chainSpec `yaml:"chains"`
}

type chainSpec struct {
	Options   *optionsSpec   `yaml:"options"`
	Endpoints []endpointSpec `yaml:"endpoints"`
}

type endpointSpec struct {
	ID       string `yaml:"id"`
	Provider string `yaml:"provider"`
	Region   string `yaml:"region"`
	Model    string `yaml:"model"`
}

type optionsSpec struct {
	MaxAttempts       int      `yaml:"max_attempts"`
	PerAttemptTimeout duration `yaml:"per_attempt_timeout"`
	RetryFatalErrors  bool     `yaml:"retry_fatal_errors"`
}

// duration parses YAML values like "30s" or "1m" into a time.Duration.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = duration(parsed)
	return nil
}

// LoadChains reads and validates the chain definition file at path.
func LoadChains(path string, knownProviders []string) (*ChainSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chains file %s: %w", path, err)
	}
	return ParseChains(data, knownProviders)
}

// ParseChains parses and validates chain definitions from raw YAML.
// knownProviders limits which provider names endpoints may reference; an
// empty slice disables the check.
func ParseChains(data []byte, knownProviders []string) (*ChainSet, error) {
	var file chainsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse chains file: %w", err)
	}

	if len(file.Chains) == 0 {
		return nil, fmt.Errorf("chains file defines no chains")
	}

	providers := make(map[string]bool, len(knownProviders))
	for _, name := range knownProviders {
		providers[name] = true
	}

	set := &ChainSet{
		chains:       make(map[string]*failover.Chain, len(file.Chains)),
		options:      make(map[string]failover.Options, len(file.Chains)),
		defaultChain: file.DefaultChain,
	}

	for name, spec := range file.Chains {
		if len(spec.Endpoints) == 0 {
			return nil, fmt.Errorf("chain %q has no endpoints", name)
		}

		endpoints := make([]failover.Endpoint, 0, len(spec.Endpoints))
		for i, ep := range spec.Endpoints {
			if ep.Provider == "" {
				return nil, fmt.Errorf("chain %q endpoint %d: provider is required", name, i)
			}
			if err := utils.ValidateModelID(ep.Model); err != nil {
				return nil, fmt.Errorf("chain %q endpoint %d: %w", name, i, err)
			}
			if len(providers) > 0 && !providers[ep.Provider] {
				return nil, fmt.Errorf("chain %q endpoint %d: unknown provider %q", name, i, ep.Provider)
			}
			endpoints = append(endpoints, failover.Endpoint{
				ID:       ep.ID,
				Provider: ep.Provider,
				Region:   ep.Region,
				Model:    ep.Model,
			})
		}

		chain, err := failover.NewChain(name, endpoints)
		if err != nil {
			return nil, fmt.Errorf("chain %q: %w", name, err)
		}

		opts := file.Defaults
		if spec.Options != nil {
			opts = *spec.Options
		}
		set.chains[name] = chain
		set.options[name] = failover.Options{
			MaxAttempts:       opts.MaxAttempts,
			PerAttemptTimeout: time.Duration(opts.PerAttemptTimeout),
			RetryFatalErrors:  opts.RetryFatalErrors,
		}
	}

	if set.defaultChain != "" {
		if _, ok := set.chains[set.defaultChain]; !ok {
			return nil, fmt.Errorf("default_chain %q is not defined", set.defaultChain)
		}
	}

	return set, nil
}

// Get returns the chain and options for the given name. Falls back to the
// default chain when name is empty.
func (s *ChainSet) Get(name string) (*failover.Chain, failover.Options, bool) {
	if name == "" {
		name = s.defaultChain
	}
	chain, ok := s.chains[name]
	if !ok {
		return nil, failover.Options{}, false
	}
	return chain, s.options[name], true
}

// Names returns the defined chain names.
func (s *ChainSet) Names() []string {
	names := make([]string, 0, len(s.chains))
	for name := range s.chains {
		names = append(names, name)
	}
	return names
}

// DefaultChain returns the configured default chain name, if any.
func (s *ChainSet) DefaultChain() string {
	return s.defaultChain
}
