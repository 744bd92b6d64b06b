// Copyright 2018 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the TOML description of the coordinate systems,
// mapping paths and AGP sources a mapping server works with.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/googlegenomics/asmmap/genomics"
)

// Help describes the configuration format.
const Help = `
The configuration format is TOML with the following fields:
  max_pair_count: pair budget of every mapper (optional, default 6000)
    coord_system: array of coordinate systems, each with a unique name and
                  version pair and an optional numeric id
            path: array of mapping paths; coord_systems lists 2 systems
                  (assembled then component) or 3 (first, middle, last)
          source: array of AGP files; assembled and component name the
                  coordinate systems of the object and component columns and
                  location is a local path or gs://bucket/object

For example:

[[coord_system]]
  name = "chromosome"
  version = "GRCh38"

[[coord_system]]
  name = "contig"

[[path]]
  coord_systems = ["chromosome:GRCh38", "contig"]

[[source]]
  assembled = "chromosome:GRCh38"
  component = "contig"
  location = "GRCh38.agp"
`

const gcsScheme = "gs://"

// Config is a parsed and validated configuration file.
type Config struct {
	MaxPairCount int           `toml:"max_pair_count"`
	CoordSystems []CoordSystem `toml:"coord_system"`
	Paths        []Path        `toml:"path"`
	Sources      []Source      `toml:"source"`

	systems map[string]*genomics.CoordSystem
}

// CoordSystem declares a coordinate system.
type CoordSystem struct {
	ID      int64  `toml:"id"`
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Path declares a mapping path between the first and last of CoordSystems.
type Path struct {
	CoordSystems []string `toml:"coord_systems"`
}

// Source declares an AGP file.
type Source struct {
	Assembled string `toml:"assembled"`
	Component string `toml:"component"`
	Location  string `toml:"location"`
}

// IsGCS reports whether the source is a Google Cloud Storage object.
func (s Source) IsGCS() bool {
	return strings.HasPrefix(s.Location, gcsScheme)
}

// Object returns the bucket and object name of a gs:// location.
func (s Source) Object() (bucket, object string, err error) {
	if !s.IsGCS() {
		return "", "", fmt.Errorf("%q is not a gs:// location", s.Location)
	}
	parts := strings.SplitN(strings.TrimPrefix(s.Location, gcsScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%q does not name an object", s.Location)
	}
	return parts[0], parts[1], nil
}

// Load reads, parses and validates the configuration file at path.  Relative
// source locations are resolved against the directory of path.
func Load(path string) (*Config, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to absolutize %q: %w", path, err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	cfg, err := Parse(b, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration %q: %w", path, err)
	}
	return cfg, nil
}

// Parse parses and validates a configuration.  Relative local source
// locations are resolved against dir.
func Parse(b []byte, dir string) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	if err := cfg.validate(dir); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate(dir string) error {
	if c.MaxPairCount < 0 {
		return fmt.Errorf("max_pair_count must not be negative, got %d", c.MaxPairCount)
	}

	c.systems = make(map[string]*genomics.CoordSystem)
	for _, cs := range c.CoordSystems {
		if cs.Name == "" {
			return fmt.Errorf("coordinate system is missing a name")
		}
		system := &genomics.CoordSystem{ID: cs.ID, Name: cs.Name, Version: cs.Version}
		if _, ok := c.systems[system.Key()]; ok {
			return fmt.Errorf("coordinate system %v is not unique", system)
		}
		c.systems[system.Key()] = system
	}

	for i, p := range c.Paths {
		if n := len(p.CoordSystems); n != 2 && n != 3 {
			return fmt.Errorf("path %d lists %d coordinate systems, want 2 or 3", i, n)
		}
		if _, err := c.resolve(p.CoordSystems...); err != nil {
			return fmt.Errorf("path %d: %w", i, err)
		}
	}

	for i := range c.Sources {
		s := &c.Sources[i]
		if _, err := c.resolve(s.Assembled, s.Component); err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
		switch {
		case s.Location == "":
			return fmt.Errorf("source %d is missing a location", i)
		case s.IsGCS():
			if _, _, err := s.Object(); err != nil {
				return fmt.Errorf("source %d: %w", i, err)
			}
		case !filepath.IsAbs(s.Location):
			s.Location = filepath.Join(dir, s.Location)
		}
	}
	return nil
}

// CoordSystem returns the declared coordinate system referenced as
// "name[:version]".  Every reference to the same system returns the same
// pointer.
func (c *Config) CoordSystem(ref string) (*genomics.CoordSystem, error) {
	parsed, err := genomics.ParseCoordSystem(ref)
	if err != nil {
		return nil, err
	}
	cs, ok := c.systems[parsed.Key()]
	if !ok {
		return nil, fmt.Errorf("undeclared coordinate system %q", ref)
	}
	return cs, nil
}

// Systems returns every declared coordinate system.
func (c *Config) Systems() []*genomics.CoordSystem {
	var systems []*genomics.CoordSystem
	for _, cs := range c.CoordSystems {
		systems = append(systems, c.systems[(&genomics.CoordSystem{Name: cs.Name, Version: cs.Version}).Key()])
	}
	return systems
}

// PathSystems returns the coordinate systems of path p.
func (c *Config) PathSystems(p Path) ([]*genomics.CoordSystem, error) {
	return c.resolve(p.CoordSystems...)
}

func (c *Config) resolve(refs ...string) ([]*genomics.CoordSystem, error) {
	var css []*genomics.CoordSystem
	for _, ref := range refs {
		cs, err := c.CoordSystem(ref)
		if err != nil {
			return nil, err
		}
		css = append(css, cs)
	}
	return css, nil
}
