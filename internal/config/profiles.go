package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"greycells/internal/roles"
	"greycells/internal/sandbox"
)

// LoadProfiles returns the builtin sandbox profiles, overlaid with the
// profiles in path when path is set. A file entry replaces the builtin of
// the same name.
//
//	profiles:
//	  node:
//	    language: JavaScript
//	    test: node --test {{quote .TestFile}}
func LoadProfiles(path string) (map[string]sandbox.Profile, error) {
	out := make(map[string]sandbox.Profile, len(sandbox.Builtin))
	for name, p := range sandbox.Builtin {
		out[name] = p
	}
	if path == "" {
		return out, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read profiles: %w", err)
	}
	var doc struct {
		Profiles map[string]sandbox.Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse profiles %s: %w", path, err)
	}
	for name, p := range doc.Profiles {
		if p.Name == "" {
			p.Name = name
		}
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("config: profile %s: %w", name, err)
		}
		out[name] = p
	}
	return out, nil
}

// Profile resolves the configured sandbox profile.
func (c *Config) Profile() (sandbox.Profile, error) {
	profiles, err := LoadProfiles(c.Sandbox.ProfileFile)
	if err != nil {
		return sandbox.Profile{}, err
	}
	p, ok := profiles[c.Sandbox.Profile]
	if !ok {
		return sandbox.Profile{}, fmt.Errorf("config: unknown sandbox profile %q (have %v)", c.Sandbox.Profile, sandbox.Names(profiles))
	}
	return p, nil
}

// Schemas returns the role schemas, overridden from RoleSchemaFile when set.
func (c *Config) Schemas() (roles.Schemas, error) {
	if c.RoleSchemaFile == "" {
		return roles.DefaultSchemas(), nil
	}
	data, err := os.ReadFile(c.RoleSchemaFile)
	if err != nil {
		return roles.Schemas{}, fmt.Errorf("config: read role schemas: %w", err)
	}
	s, err := roles.LoadSchemas(data)
	if err != nil {
		return roles.Schemas{}, fmt.Errorf("config: %s: %w", c.RoleSchemaFile, err)
	}
	return s, nil
}
