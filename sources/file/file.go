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

// Package file loads AGP files from the local file system into a memory
// store.
package file

import (
	"context"
	"fmt"
	"os"

	"github.com/googlegenomics/asmmap/genomics"
	"github.com/googlegenomics/asmmap/internal/agp"
	"github.com/googlegenomics/asmmap/sources/memory"
	"golang.org/x/sync/errgroup"
)

// Source is an AGP file whose objects are sequence regions of Assembled and
// whose components are sequence regions of Component.
type Source struct {
	Assembled, Component *genomics.CoordSystem
	Path                 string
}

// Load parses every source concurrently and adds their rows to store in the
// order the sources are listed, so sequence region ids do not depend on which
// file is parsed first.
func Load(ctx context.Context, store *memory.Store, sources []Source) error {
	parsed := make([][]agp.Row, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := parseFile(src.Path)
			if err != nil {
				return err
			}
			parsed[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, src := range sources {
		if err := store.AddRows(src.Assembled, src.Component, parsed[i]); err != nil {
			return fmt.Errorf("loading %q: %w", src.Path, err)
		}
	}
	return nil
}

func parseFile(path string) ([]agp.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening AGP file: %w", err)
	}
	defer f.Close()

	rows, err := agp.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return rows, nil
}
