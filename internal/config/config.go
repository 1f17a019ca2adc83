// Package config loads and validates the static gurgler.toml document
// that describes buckets, environments, and publish globs. Validation is
// a single pass returning every violation at once; core components
// receive the validated value and never re-validate.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Defaults for the policy knobs the original tool hardcoded.
const (
	DefaultDisplayLimit    = 20
	DefaultRetentionDays   = 90
	DefaultProtectedBranch = "main"
)

// FileGlob names a set of local build outputs to publish. Ignore
// patterns are matched against the same paths the pattern produced.
type FileGlob struct {
	Pattern string   `toml:"pattern"`
	Ignore  []string `toml:"ignore"`
}

// Environment is one release target. ParameterName is the release
// pointer key in the parameter store; ServerClass selects the bucket
// (and optionally a delegated activation function).
type Environment struct {
	Key             string `toml:"key"`
	ParameterName   string `toml:"parameter"`
	ServerClass     string `toml:"server_class"`
	Label           string `toml:"label"`
	ProtectedBranch bool   `toml:"protected_branch"`
	Channel         string `toml:"channel"`
}

// Notify is the optional chat notification group. If any field is set,
// all of them are required.
type Notify struct {
	WebhookURL string `toml:"webhook_url"`
	Username   string `toml:"username"`
	Icon       string `toml:"icon"`
	RepoURL    string `toml:"repo_url"`
}

// Config is the validated configuration document handed to every core
// component. It is immutable after Load.
type Config struct {
	BasePath            string            `toml:"base_path"`
	Buckets             map[string]string `toml:"buckets"`
	FileGlobs           []FileGlob        `toml:"file_globs"`
	Environments        []Environment     `toml:"environments"`
	Notify              Notify            `toml:"notify"`
	ActivationFunctions map[string]string `toml:"activation_functions"`
	DisplayLimit        int               `toml:"display_limit"`
	RetentionDays       int               `toml:"retention_days"`
	ProtectedBranchName string            `toml:"protected_branch_name"`
}

// Violation is one configuration problem found during validation.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// Load reads and decodes a TOML configuration file and applies defaults.
// It does not validate; call Validate on the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DisplayLimit == 0 {
		c.DisplayLimit = DefaultDisplayLimit
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = DefaultRetentionDays
	}
	if c.ProtectedBranchName == "" {
		c.ProtectedBranchName = DefaultProtectedBranch
	}
}

// Validate checks the whole document and returns every violation found.
// An empty slice means the configuration is usable.
func (c *Config) Validate() []Violation {
	var vs []Violation

	if c.BasePath == "" {
		vs = append(vs, Violation{"base_path", "required"})
	}
	if strings.HasSuffix(c.BasePath, "/") {
		vs = append(vs, Violation{"base_path", "must not end with /"})
	}
	if len(c.Buckets) == 0 {
		vs = append(vs, Violation{"buckets", "at least one server class bucket is required"})
	}
	if len(c.FileGlobs) == 0 {
		vs = append(vs, Violation{"file_globs", "at least one glob is required"})
	}
	for i, g := range c.FileGlobs {
		if g.Pattern == "" {
			vs = append(vs, Violation{fmt.Sprintf("file_globs[%d].pattern", i), "required"})
		}
	}

	if len(c.Environments) == 0 {
		vs = append(vs, Violation{"environments", "at least one environment is required"})
	}
	seen := map[string]bool{}
	for i, env := range c.Environments {
		field := func(name string) string {
			return fmt.Sprintf("environments[%d].%s", i, name)
		}
		if env.Key == "" {
			vs = append(vs, Violation{field("key"), "required"})
		} else if seen[env.Key] {
			vs = append(vs, Violation{field("key"), fmt.Sprintf("duplicate environment key %q", env.Key)})
		}
		seen[env.Key] = true
		if env.ParameterName == "" {
			vs = append(vs, Violation{field("parameter"), "required"})
		}
		if env.ServerClass == "" {
			vs = append(vs, Violation{field("server_class"), "required"})
		} else if _, ok := c.Buckets[env.ServerClass]; !ok {
			vs = append(vs, Violation{field("server_class"),
				fmt.Sprintf("unknown server class %q (no bucket configured)", env.ServerClass)})
		}
	}

	for class := range c.ActivationFunctions {
		if _, ok := c.Buckets[class]; !ok {
			vs = append(vs, Violation{"activation_functions",
				fmt.Sprintf("unknown server class %q", class)})
		}
	}

	vs = append(vs, c.validateNotify()...)

	if c.DisplayLimit < 1 {
		vs = append(vs, Violation{"display_limit", "must be positive"})
	}
	if c.RetentionDays < 1 {
		vs = append(vs, Violation{"retention_days", "must be positive"})
	}

	return vs
}

// validateNotify enforces the all-or-nothing rule on the notification
// group: either every field is present or none are.
func (c *Config) validateNotify() []Violation {
	n := c.Notify
	fields := map[string]string{
		"notify.webhook_url": n.WebhookURL,
		"notify.username":    n.Username,
		"notify.icon":        n.Icon,
		"notify.repo_url":    n.RepoURL,
	}

	var set, unset []string
	for name, val := range fields {
		if val == "" {
			unset = append(unset, name)
		} else {
			set = append(set, name)
		}
	}
	if len(set) == 0 || len(unset) == 0 {
		return nil
	}

	sort.Strings(unset)
	var vs []Violation
	for _, name := range unset {
		vs = append(vs, Violation{name, "required when any notify field is set"})
	}
	return vs
}

// NotifyEnabled reports whether the notification group was configured.
func (c *Config) NotifyEnabled() bool {
	return c.Notify.WebhookURL != ""
}

// Environment looks up an environment by operator-facing key.
func (c *Config) Environment(key string) (Environment, bool) {
	for _, env := range c.Environments {
		if env.Key == key {
			return env, true
		}
	}
	return Environment{}, false
}

// EnvironmentKeys returns the configured keys in declaration order.
func (c *Config) EnvironmentKeys() []string {
	keys := make([]string, 0, len(c.Environments))
	for _, env := range c.Environments {
		keys = append(keys, env.Key)
	}
	return keys
}

// ServerClasses returns the configured server classes, sorted.
func (c *Config) ServerClasses() []string {
	classes := make([]string, 0, len(c.Buckets))
	for class := range c.Buckets {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

// ActivationFunction returns the delegated activation function for a
// server class, if one is configured.
func (c *Config) ActivationFunction(serverClass string) (string, bool) {
	fn, ok := c.ActivationFunctions[serverClass]
	return fn, ok
}
