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

package main

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/googlegenomics/asmmap/assembly"
	"github.com/googlegenomics/asmmap/internal/config"
)

// registerPaths loads every mapping path completely.  The pair budget is
// lifted first, or the next query needing a load would flush everything.
func registerPaths(ctx context.Context, cfg *config.Config, cache *assembly.Cache) error {
	cache.SetMaxPairCount(math.MaxInt32)
	for _, path := range cfg.Paths {
		css, err := cfg.PathSystems(path)
		if err != nil {
			return err
		}
		m, err := cache.Mapper(css[0], css[len(css)-1])
		if err != nil {
			return err
		}
		if err := m.RegisterAll(ctx); err != nil {
			return fmt.Errorf("registering %v: %w", css, err)
		}
		log.Printf("Registered %v: %d pairs", css, m.Size())
	}
	return nil
}
