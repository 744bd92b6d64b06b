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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const valid = `
max_pair_count = 100

[[coord_system]]
  id = 1
  name = "chromosome"
  version = "GRCh38"

[[coord_system]]
  name = "contig"

[[coord_system]]
  name = "clone"

[[path]]
  coord_systems = ["chromosome:GRCh38", "contig"]

[[path]]
  coord_systems = ["chromosome:GRCh38", "contig", "clone"]

[[source]]
  assembled = "chromosome:GRCh38"
  component = "contig"
  location = "agp/chr.agp"

[[source]]
  assembled = "clone"
  component = "Contig"
  location = "gs://bucket/clones.agp"
`

func TestLoad(t *testing.T) {
	dir, err := os.MkdirTemp("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "asmmap.toml")
	require.NoError(t, os.WriteFile(path, []byte(valid), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.MaxPairCount)
	assert.Len(t, cfg.Systems(), 3)
	assert.Equal(t, filepath.Join(dir, "agp/chr.agp"), cfg.Sources[0].Location)
	assert.False(t, cfg.Sources[0].IsGCS())

	bucket, object, err := cfg.Sources[1].Object()
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "clones.agp", object)

	chrom, err := cfg.CoordSystem("chromosome:GRCh38")
	require.NoError(t, err)
	assert.Equal(t, int64(1), chrom.ID)

	css, err := cfg.PathSystems(cfg.Paths[1])
	require.NoError(t, err)
	require.Len(t, css, 3)
	assert.True(t, css[0] == chrom)
	contig, err := cfg.CoordSystem("CONTIG")
	require.NoError(t, err)
	assert.True(t, css[1] == contig)
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name, input string
	}{
		{"syntax", `max_pair_count = `},
		{"negative budget", `max_pair_count = -1`},
		{"unnamed system", "[[coord_system]]\nversion = \"x\""},
		{"duplicate system", "[[coord_system]]\nname = \"a\"\n[[coord_system]]\nname = \"A\""},
		{"short path", "[[coord_system]]\nname = \"a\"\n[[path]]\ncoord_systems = [\"a\"]"},
		{"unknown path system", "[[coord_system]]\nname = \"a\"\n[[path]]\ncoord_systems = [\"a\", \"b\"]"},
		{"unknown source system", "[[coord_system]]\nname = \"a\"\n[[source]]\nassembled = \"a\"\ncomponent = \"b\"\nlocation = \"x\""},
		{"missing location", "[[coord_system]]\nname = \"a\"\n[[source]]\nassembled = \"a\"\ncomponent = \"a\""},
		{"bucket only", "[[coord_system]]\nname = \"a\"\n[[source]]\nassembled = \"a\"\ncomponent = \"a\"\nlocation = \"gs://bucket\""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.input), "/")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(os.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}
