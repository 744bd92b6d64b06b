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

// Package assembly maps sequence regions between coordinate systems, loading
// alignment rows lazily from a RegionLoader as regions are queried.
//
// Mappers are not safe for concurrent use.  Registering a region and loading
// its rows is a single logical step; callers sharing a mapper must hold a lock
// around each whole call.
package assembly

import (
	"context"
	"errors"
	"fmt"

	"github.com/googlegenomics/asmmap/genomics"
	"github.com/googlegenomics/asmmap/mapper"
	"github.com/googlegenomics/asmmap/registry"
)

// DefaultMaxPairCount is the default budget of pairs a mapper holds before
// it is flushed.
const DefaultMaxPairCount = 6000

const (
	assembledTag = "assembled"
	componentTag = "component"
)

var (
	// ErrUnknownCoordSystem is returned when a query names a coordinate
	// system the mapper was not built for.
	ErrUnknownCoordSystem = errors.New("coordinate system not handled by this mapper")
	// ErrCoordSystemCount is returned when a mapper is constructed with the
	// wrong number of coordinate systems.
	ErrCoordSystemCount = errors.New("wrong number of coordinate systems")

	errNoResolver = errors.New("no sequence region resolver configured")
)

// AssemblyMapper maps between an assembled coordinate system and the
// component coordinate system it is built from.  It must be created with
// NewAssemblyMapper.
type AssemblyMapper struct {
	loader   RegionLoader
	resolver SeqRegionResolver

	assembled, component *genomics.CoordSystem

	mapper            *mapper.Mapper
	assembledRegistry *registry.Registry
	componentRegistry *registry.Registry

	maxPairCount int
	logf         func(format string, args ...interface{})
}

// NewAssemblyMapper returns a mapper between exactly two coordinate systems,
// the assembled one first.
func NewAssemblyMapper(loader RegionLoader, resolver SeqRegionResolver, css ...*genomics.CoordSystem) (*AssemblyMapper, error) {
	if len(css) != 2 || css[0] == nil || css[1] == nil {
		return nil, fmt.Errorf("%w: an assembly mapper needs 2, got %d", ErrCoordSystemCount, len(css))
	}
	return &AssemblyMapper{
		loader:            loader,
		resolver:          resolver,
		assembled:         css[0],
		component:         css[1],
		mapper:            mapper.New(assembledTag, componentTag, css[0], css[1]),
		assembledRegistry: registry.New(),
		componentRegistry: registry.New(),
		maxPairCount:      DefaultMaxPairCount,
		logf:              nopLogf,
	}, nil
}

// MaxPairCount returns the pair budget.
func (am *AssemblyMapper) MaxPairCount() int { return am.maxPairCount }

// SetMaxPairCount sets the pair budget.  It is checked the next time a query
// needs to load rows.
func (am *AssemblyMapper) SetMaxPairCount(n int) { am.maxPairCount = n }

// SetLogger sets the function budget flushes are reported to.
func (am *AssemblyMapper) SetLogger(logf func(format string, args ...interface{})) {
	if logf == nil {
		logf = nopLogf
	}
	am.logf = logf
}

// Size returns the number of pairs held.
func (am *AssemblyMapper) Size() int { return am.mapper.PairCount() }

// Flush drops all pairs and registrations.
func (am *AssemblyMapper) Flush() {
	am.mapper.Flush()
	am.assembledRegistry.Flush()
	am.componentRegistry.Flush()
}

type assemblySide struct {
	tag      string
	cs       *genomics.CoordSystem
	other    *genomics.CoordSystem
	registry *registry.Registry
}

func (am *AssemblyMapper) side(cs *genomics.CoordSystem) (assemblySide, error) {
	switch {
	case cs == am.component || cs != am.assembled && cs.Equal(am.component):
		return assemblySide{componentTag, am.component, am.assembled, am.componentRegistry}, nil
	case cs == am.assembled || cs.Equal(am.assembled):
		return assemblySide{assembledTag, am.assembled, am.component, am.assembledRegistry}, nil
	}
	return assemblySide{}, fmt.Errorf("%w: %v is neither %v nor %v", ErrUnknownCoordSystem, cs, am.assembled, am.component)
}

// Map transforms [start, end] on the named sequence region of cs onto the
// other coordinate system.
func (am *AssemblyMapper) Map(ctx context.Context, name string, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error) {
	id, err := resolveID(ctx, am.resolver, cs, name)
	if err != nil {
		return nil, err
	}
	return am.MapID(ctx, id, start, end, strand, cs)
}

// FastMap is Map for queries expected to fall inside a single pair.  It
// returns an empty set otherwise.
func (am *AssemblyMapper) FastMap(ctx context.Context, name string, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error) {
	id, err := resolveID(ctx, am.resolver, cs, name)
	if err != nil {
		return nil, err
	}
	return am.FastMapID(ctx, id, start, end, strand, cs)
}

// MapToRegion is Map restricted to the target sequence region of the other
// coordinate system.
func (am *AssemblyMapper) MapToRegion(ctx context.Context, name string, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem, target string) (*mapper.RangeSet, error) {
	side, err := am.side(cs)
	if err != nil {
		return nil, err
	}
	targetID, err := resolveID(ctx, am.resolver, side.other, target)
	if err != nil {
		return nil, err
	}
	set, err := am.Map(ctx, name, start, end, strand, cs)
	if err != nil {
		return nil, err
	}
	return onRegion(set, targetID), nil
}

// MapID transforms [start, end] on sequence region id of cs.
func (am *AssemblyMapper) MapID(ctx context.Context, id, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error) {
	side, err := am.register(ctx, id, start, end, cs)
	if err != nil {
		return nil, err
	}
	return am.mapper.Map(id, start, end, strand, side.tag)
}

// FastMapID is FastMap with the sequence region given by id.
func (am *AssemblyMapper) FastMapID(ctx context.Context, id, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error) {
	side, err := am.register(ctx, id, start, end, cs)
	if err != nil {
		return nil, err
	}
	return am.mapper.FastMap(id, start, end, strand, side.tag)
}

// ListIDs returns the ids of the sequence regions of the other coordinate
// system that overlap the query.
func (am *AssemblyMapper) ListIDs(ctx context.Context, name string, start, end int64, cs *genomics.CoordSystem) ([]int64, error) {
	id, err := resolveID(ctx, am.resolver, cs, name)
	if err != nil {
		return nil, err
	}
	return am.ListIDsByID(ctx, id, start, end, cs)
}

// ListIDsByID is ListIDs with the sequence region given by id.
func (am *AssemblyMapper) ListIDsByID(ctx context.Context, id, start, end int64, cs *genomics.CoordSystem) ([]int64, error) {
	side, err := am.register(ctx, id, start, end, cs)
	if err != nil {
		return nil, err
	}
	return am.mapper.ListIDs(id, start, end, side.tag)
}

// ListSeqRegions is ListIDs returning sequence region names.
func (am *AssemblyMapper) ListSeqRegions(ctx context.Context, name string, start, end int64, cs *genomics.CoordSystem) ([]string, error) {
	ids, err := am.ListIDs(ctx, name, start, end, cs)
	if err != nil {
		return nil, err
	}
	return resolveNames(ctx, am.resolver, ids)
}

// register makes sure the rows needed to answer a query on [start, end] of
// sequence region id are loaded.
func (am *AssemblyMapper) register(ctx context.Context, id, start, end int64, cs *genomics.CoordSystem) (assemblySide, error) {
	side, err := am.side(cs)
	if err != nil {
		return side, err
	}
	w, err := newWindow(start, end)
	if err != nil {
		return side, err
	}

	gaps, err := w.checkAndRegister(side.registry, id)
	if err != nil {
		return side, err
	}
	if len(gaps) == 0 {
		return side, nil
	}

	if am.Size() > am.maxPairCount {
		am.logf("Flushing %v <-> %v mapper: %d pairs exceed budget of %d", am.assembled, am.component, am.Size(), am.maxPairCount)
		am.Flush()
		if gaps, err = w.checkAndRegister(side.registry, id); err != nil {
			return side, err
		}
	}

	if err := am.load(ctx, side, gaps); err != nil {
		am.Flush()
		return side, err
	}
	return side, nil
}

func (am *AssemblyMapper) load(ctx context.Context, side assemblySide, gaps []genomics.Region) error {
	for _, gap := range gaps {
		rows, err := am.loader.LoadAlignments(ctx, side.cs, side.other, gap)
		if err != nil {
			return fmt.Errorf("loading %v -> %v alignments for %v: %w", side.cs, side.other, gap, err)
		}
		for _, row := range rows {
			if err := am.add(side, row); err != nil {
				return err
			}
			// The row may reach past the gap; all of it is loaded now.
			if !gap.Contains(row.Source) {
				if err := registerExtent(side.registry, row.Source); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (am *AssemblyMapper) add(side assemblySide, row Alignment) error {
	if side.tag == assembledTag {
		return am.mapper.Add(row.Source, genomics.Forward, row.Target, row.Ori)
	}
	return am.mapper.Add(row.Target, genomics.Forward, row.Source, row.Ori)
}

// RegisterAll loads every alignment between the two coordinate systems.  The
// pair budget should be raised first or the next loading query will flush it.
func (am *AssemblyMapper) RegisterAll(ctx context.Context) error {
	rows, err := am.loader.LoadAllAlignments(ctx, am.assembled, am.component)
	if err != nil {
		return fmt.Errorf("loading all %v -> %v alignments: %w", am.assembled, am.component, err)
	}

	side := assemblySide{assembledTag, am.assembled, am.component, am.assembledRegistry}
	assembledEnds, componentEnds := make(map[int64]int64), make(map[int64]int64)
	for _, row := range rows {
		if err := am.add(side, row); err != nil {
			am.Flush()
			return err
		}
		trackEnd(assembledEnds, row.Source)
		trackEnd(componentEnds, row.Target)
	}

	if err := registerWhole(am.assembledRegistry, assembledEnds); err != nil {
		return err
	}
	return registerWhole(am.componentRegistry, componentEnds)
}
