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

// Package bootstrap builds a mapper cache from a configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/googlegenomics/asmmap/assembly"
	"github.com/googlegenomics/asmmap/internal/config"
	"github.com/googlegenomics/asmmap/sources/file"
	"github.com/googlegenomics/asmmap/sources/gcs"
	"github.com/googlegenomics/asmmap/sources/memory"
)

var errNoStorageClient = errors.New("gs:// sources configured without a storage client")

// Build loads every source of cfg into a new store and returns a cache
// declaring the mapping paths of cfg.  client may be nil when cfg has no
// gs:// sources.
func Build(ctx context.Context, cfg *config.Config, client gcs.Client) (*assembly.Cache, *memory.Store, error) {
	var (
		files   []file.Source
		objects []gcs.Source
	)
	for _, src := range cfg.Sources {
		assembled, err := cfg.CoordSystem(src.Assembled)
		if err != nil {
			return nil, nil, err
		}
		component, err := cfg.CoordSystem(src.Component)
		if err != nil {
			return nil, nil, err
		}
		if !src.IsGCS() {
			files = append(files, file.Source{Assembled: assembled, Component: component, Path: src.Location})
			continue
		}
		bucket, object, err := src.Object()
		if err != nil {
			return nil, nil, err
		}
		objects = append(objects, gcs.Source{Assembled: assembled, Component: component, Bucket: bucket, Object: object})
	}

	store := memory.New()
	if err := file.Load(ctx, store, files); err != nil {
		return nil, nil, fmt.Errorf("loading local sources: %w", err)
	}
	if len(objects) > 0 {
		if client == nil {
			return nil, nil, errNoStorageClient
		}
		if err := gcs.Load(ctx, client, store, objects); err != nil {
			return nil, nil, fmt.Errorf("loading storage sources: %w", err)
		}
	}

	cache := assembly.NewCache(store, store)
	if cfg.MaxPairCount > 0 {
		cache.SetMaxPairCount(cfg.MaxPairCount)
	}
	for _, path := range cfg.Paths {
		css, err := cfg.PathSystems(path)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.AddMappingPath(css...); err != nil {
			return nil, nil, err
		}
	}
	return cache, store, nil
}
