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

package assembly

import (
	"errors"
	"fmt"
	"sync"

	"github.com/googlegenomics/asmmap/genomics"
)

// ErrNoMappingPath is returned when no mapping path was declared between two
// coordinate systems.
var ErrNoMappingPath = errors.New("no mapping path between coordinate systems")

// Cache owns the mappers of one backing store.  Mappers are created on first
// use and live until the cache is closed.  The cache itself is safe for
// concurrent use; the mappers it returns are not.
type Cache struct {
	loader   RegionLoader
	resolver SeqRegionResolver

	mu           sync.Mutex
	paths        map[pathKey][]*genomics.CoordSystem
	mappers      map[pathKey]CoordMapper
	maxPairCount int

	// Logf, if set, receives budget flush reports of mappers created after it
	// is set.
	Logf func(format string, args ...interface{})
}

type pathKey struct {
	a, b string
}

func keyOf(a, b *genomics.CoordSystem) pathKey {
	ka, kb := a.Key(), b.Key()
	if kb < ka {
		ka, kb = kb, ka
	}
	return pathKey{ka, kb}
}

// NewCache returns an empty cache whose mappers use loader and resolver.
func NewCache(loader RegionLoader, resolver SeqRegionResolver) *Cache {
	return &Cache{
		loader:       loader,
		resolver:     resolver,
		paths:        make(map[pathKey][]*genomics.CoordSystem),
		mappers:      make(map[pathKey]CoordMapper),
		maxPairCount: DefaultMaxPairCount,
	}
}

// AddMappingPath declares how to map between the first and last of css.  Two
// coordinate systems (assembled then component) declare a direct mapping;
// three declare a mapping chained through the middle one.
func (c *Cache) AddMappingPath(css ...*genomics.CoordSystem) error {
	if len(css) != 2 && len(css) != 3 {
		return fmt.Errorf("%w: a mapping path needs 2 or 3, got %d", ErrCoordSystemCount, len(css))
	}
	for _, cs := range css {
		if cs == nil {
			return fmt.Errorf("%w: nil coordinate system in path", ErrCoordSystemCount)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key := keyOf(css[0], css[len(css)-1])
	c.paths[key] = css
	delete(c.mappers, key)
	return nil
}

// Mapper returns the mapper between from and to, in either order, creating
// it on first use.
func (c *Cache) Mapper(from, to *genomics.CoordSystem) (CoordMapper, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("%w: nil coordinate system", ErrCoordSystemCount)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key := keyOf(from, to)
	if m, ok := c.mappers[key]; ok {
		return m, nil
	}
	path, ok := c.paths[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v and %v", ErrNoMappingPath, from, to)
	}

	var m CoordMapper
	if len(path) == 2 {
		am, err := NewAssemblyMapper(c.loader, c.resolver, path...)
		if err != nil {
			return nil, err
		}
		am.SetLogger(c.Logf)
		m = am
	} else {
		cm, err := NewChainedAssemblyMapper(c.loader, c.resolver, path...)
		if err != nil {
			return nil, err
		}
		cm.SetLogger(c.Logf)
		m = cm
	}
	m.SetMaxPairCount(c.maxPairCount)
	c.mappers[key] = m
	return m, nil
}

// SetMaxPairCount sets the pair budget of every existing and future mapper.
func (c *Cache) SetMaxPairCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxPairCount = n
	for _, m := range c.mappers {
		m.SetMaxPairCount(n)
	}
}

// Flush flushes every mapper created so far, for instance after the backing
// store has changed.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.mappers {
		m.Flush()
	}
}

// Close drops every mapper.  The cache remains usable and recreates mappers
// on demand.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, m := range c.mappers {
		m.Flush()
		delete(c.mappers, key)
	}
}
