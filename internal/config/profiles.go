package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"vendorbridge/cli/internal/xdg"
)

// Profile is a named resource configuration: the server the orchestrator
// should bridge to and the arguments it needs.
type Profile struct {
	Server string         `yaml:"server"`
	Args   map[string]any `yaml:"args"`
}

// Profiles maps profile names to resource configurations.
type Profiles map[string]Profile

type profilesFile struct {
	Profiles Profiles `yaml:"profiles"`
}

// ProfilesPath returns the default profiles.yaml location.
func ProfilesPath() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profiles.yaml"), nil
}

// LoadProfiles reads profiles from path, or from the default location when
// path is empty. A missing default file yields no profiles; a missing
// explicit file is an error.
func LoadProfiles(path string) (Profiles, error) {
	explicit := path != ""
	if !explicit {
		p, err := ProfilesPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Profiles{}, nil
		}
		return nil, err
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes a profiles document.
func ParseProfiles(data []byte) (Profiles, error) {
	var f profilesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if f.Profiles == nil {
		return Profiles{}, nil
	}
	for name, p := range f.Profiles {
		if p.Server == "" {
			return nil, fmt.Errorf("profile %q: server is required", name)
		}
	}
	return f.Profiles, nil
}

// Get returns the named profile.
func (ps Profiles) Get(name string) (Profile, error) {
	p, ok := ps[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q not found (available: %v)", name, ps.Names())
	}
	return p, nil
}

// Names returns the profile names in sorted order.
func (ps Profiles) Names() []string {
	names := make([]string, 0, len(ps))
	for n := range ps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
