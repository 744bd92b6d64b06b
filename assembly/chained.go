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
	"context"
	"fmt"

	"github.com/googlegenomics/asmmap/genomics"
	"github.com/googlegenomics/asmmap/mapper"
	"github.com/googlegenomics/asmmap/registry"
)

const (
	firstTag  = "first"
	middleTag = "middle"
	lastTag   = "last"
)

// ChainedAssemblyMapper maps between two coordinate systems that have no
// direct alignments by composing their alignments onto a shared middle
// coordinate system.  The middle system is never exposed to callers.
type ChainedAssemblyMapper struct {
	loader   RegionLoader
	resolver SeqRegionResolver

	first, middle, last *genomics.CoordSystem

	firstMiddle *mapper.Mapper
	lastMiddle  *mapper.Mapper
	firstLast   *mapper.Mapper

	firstRegistry *registry.Registry
	lastRegistry  *registry.Registry

	maxPairCount int
	logf         func(format string, args ...interface{})
}

// NewChainedAssemblyMapper returns a mapper between css[0] and css[2] through
// css[1].
func NewChainedAssemblyMapper(loader RegionLoader, resolver SeqRegionResolver, css ...*genomics.CoordSystem) (*ChainedAssemblyMapper, error) {
	if len(css) != 3 || css[0] == nil || css[1] == nil || css[2] == nil {
		return nil, fmt.Errorf("%w: a chained assembly mapper needs 3, got %d", ErrCoordSystemCount, len(css))
	}
	first, middle, last := css[0], css[1], css[2]
	return &ChainedAssemblyMapper{
		loader:        loader,
		resolver:      resolver,
		first:         first,
		middle:        middle,
		last:          last,
		firstMiddle:   mapper.New(firstTag, middleTag, first, middle),
		lastMiddle:    mapper.New(lastTag, middleTag, last, middle),
		firstLast:     mapper.New(firstTag, lastTag, first, last),
		firstRegistry: registry.New(),
		lastRegistry:  registry.New(),
		maxPairCount:  DefaultMaxPairCount,
		logf:          nopLogf,
	}, nil
}

func (cm *ChainedAssemblyMapper) MaxPairCount() int     { return cm.maxPairCount }
func (cm *ChainedAssemblyMapper) SetMaxPairCount(n int) { cm.maxPairCount = n }

// SetLogger sets the function budget flushes are reported to.
func (cm *ChainedAssemblyMapper) SetLogger(logf func(format string, args ...interface{})) {
	if logf == nil {
		logf = nopLogf
	}
	cm.logf = logf
}

// Size returns the number of pairs held by all three internal mappers.
func (cm *ChainedAssemblyMapper) Size() int {
	return cm.firstLast.PairCount() + cm.lastMiddle.PairCount() + cm.firstMiddle.PairCount()
}

// Flush drops the pairs of all three internal mappers and both registries.
func (cm *ChainedAssemblyMapper) Flush() {
	cm.firstRegistry.Flush()
	cm.lastRegistry.Flush()
	cm.firstMiddle.Flush()
	cm.lastMiddle.Flush()
	cm.firstLast.Flush()
}

// chainSide describes one end of the chain: the side a query starts from and
// the opposite side its rows are composed onto.
type chainSide struct {
	tag         string
	cs          *genomics.CoordSystem
	registry    *registry.Registry
	toMiddle    *mapper.Mapper
	endCS       *genomics.CoordSystem
	endToMiddle *mapper.Mapper
}

func (cm *ChainedAssemblyMapper) firstSide() chainSide {
	return chainSide{
		firstTag, cm.first, cm.firstRegistry, cm.firstMiddle,
		cm.last, cm.lastMiddle,
	}
}

func (cm *ChainedAssemblyMapper) lastSide() chainSide {
	return chainSide{
		lastTag, cm.last, cm.lastRegistry, cm.lastMiddle,
		cm.first, cm.firstMiddle,
	}
}

func (cm *ChainedAssemblyMapper) side(cs *genomics.CoordSystem) (chainSide, error) {
	switch {
	case cs == cm.first || cs != cm.last && cs.Equal(cm.first):
		return cm.firstSide(), nil
	case cs == cm.last || cs.Equal(cm.last):
		return cm.lastSide(), nil
	}
	return chainSide{}, fmt.Errorf("%w: %v is neither %v nor %v", ErrUnknownCoordSystem, cs, cm.first, cm.last)
}

// Map transforms [start, end] on the named sequence region of cs onto the
// other end of the chain.
func (cm *ChainedAssemblyMapper) Map(ctx context.Context, name string, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error) {
	id, err := resolveID(ctx, cm.resolver, cs, name)
	if err != nil {
		return nil, err
	}
	return cm.MapID(ctx, id, start, end, strand, cs)
}

// FastMap is Map for queries expected to fall inside a single composed pair.
func (cm *ChainedAssemblyMapper) FastMap(ctx context.Context, name string, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error) {
	id, err := resolveID(ctx, cm.resolver, cs, name)
	if err != nil {
		return nil, err
	}
	return cm.FastMapID(ctx, id, start, end, strand, cs)
}

// MapToRegion is Map restricted to the target sequence region at the other
// end of the chain.
func (cm *ChainedAssemblyMapper) MapToRegion(ctx context.Context, name string, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem, target string) (*mapper.RangeSet, error) {
	side, err := cm.side(cs)
	if err != nil {
		return nil, err
	}
	targetID, err := resolveID(ctx, cm.resolver, side.endCS, target)
	if err != nil {
		return nil, err
	}
	set, err := cm.Map(ctx, name, start, end, strand, cs)
	if err != nil {
		return nil, err
	}
	return onRegion(set, targetID), nil
}

// MapID transforms [start, end] on sequence region id of cs.
func (cm *ChainedAssemblyMapper) MapID(ctx context.Context, id, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error) {
	side, err := cm.register(ctx, id, start, end, cs)
	if err != nil {
		return nil, err
	}
	return cm.firstLast.Map(id, start, end, strand, side.tag)
}

// FastMapID is FastMap with the sequence region given by id.
func (cm *ChainedAssemblyMapper) FastMapID(ctx context.Context, id, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error) {
	side, err := cm.register(ctx, id, start, end, cs)
	if err != nil {
		return nil, err
	}
	return cm.firstLast.FastMap(id, start, end, strand, side.tag)
}

// ListIDs returns the ids of the sequence regions at the other end of the
// chain that overlap the query.
func (cm *ChainedAssemblyMapper) ListIDs(ctx context.Context, name string, start, end int64, cs *genomics.CoordSystem) ([]int64, error) {
	id, err := resolveID(ctx, cm.resolver, cs, name)
	if err != nil {
		return nil, err
	}
	return cm.ListIDsByID(ctx, id, start, end, cs)
}

// ListIDsByID is ListIDs with the sequence region given by id.
func (cm *ChainedAssemblyMapper) ListIDsByID(ctx context.Context, id, start, end int64, cs *genomics.CoordSystem) ([]int64, error) {
	side, err := cm.register(ctx, id, start, end, cs)
	if err != nil {
		return nil, err
	}
	return cm.firstLast.ListIDs(id, start, end, side.tag)
}

// ListSeqRegions is ListIDs returning sequence region names.
func (cm *ChainedAssemblyMapper) ListSeqRegions(ctx context.Context, name string, start, end int64, cs *genomics.CoordSystem) ([]string, error) {
	ids, err := cm.ListIDs(ctx, name, start, end, cs)
	if err != nil {
		return nil, err
	}
	return resolveNames(ctx, cm.resolver, ids)
}

func (cm *ChainedAssemblyMapper) register(ctx context.Context, id, start, end int64, cs *genomics.CoordSystem) (chainSide, error) {
	side, err := cm.side(cs)
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

	if cm.Size() > cm.maxPairCount {
		cm.logf("Flushing %v <-> %v <-> %v mapper: %d pairs exceed budget of %d", cm.first, cm.middle, cm.last, cm.Size(), cm.maxPairCount)
		cm.Flush()
		if gaps, err = w.checkAndRegister(side.registry, id); err != nil {
			return side, err
		}
	}

	if err := cm.registerChained(ctx, side, gaps); err != nil {
		cm.Flush()
		return side, err
	}
	return side, nil
}

// registerChained loads both hops for the newly registered gaps of one side
// and adds the composed pairs to the first <-> last mapper.  Only the querying
// side is registered: the end side rows reached here may also be covered by
// start side regions that were never loaded.
func (cm *ChainedAssemblyMapper) registerChained(ctx context.Context, side chainSide, gaps []genomics.Region) error {
	var startRanges, midRanges []genomics.Region
	for _, gap := range gaps {
		rows, err := cm.loader.LoadAlignments(ctx, side.cs, cm.middle, gap)
		if err != nil {
			return fmt.Errorf("loading %v -> %v alignments for %v: %w", side.cs, cm.middle, gap, err)
		}
		for _, row := range rows {
			if err := side.toMiddle.Add(row.Source, genomics.Forward, row.Target, row.Ori); err != nil {
				return err
			}
			startRanges = append(startRanges, row.Source)
			midRanges = append(midRanges, row.Target)
			if !gap.Contains(row.Source) {
				if err := registerExtent(side.registry, row.Source); err != nil {
					return err
				}
			}
		}
	}

	for _, mid := range midRanges {
		rows, err := cm.loader.LoadAlignments(ctx, cm.middle, side.endCS, mid)
		if err != nil {
			return fmt.Errorf("loading %v -> %v alignments for %v: %w", cm.middle, side.endCS, mid, err)
		}
		for _, row := range rows {
			if err := side.endToMiddle.Add(row.Target, genomics.Forward, row.Source, row.Ori); err != nil {
				return err
			}
		}
	}

	return cm.buildCombined(side, startRanges)
}

// buildCombined maps each start side range through the middle coordinate
// system onto the end side and records every resulting piece as a pair of
// the first <-> last mapper.
func (cm *ChainedAssemblyMapper) buildCombined(side chainSide, ranges []genomics.Region) error {
	for _, r := range ranges {
		initial, err := side.toMiddle.Map(r.SeqRegionID, r.Start, r.End, genomics.Forward, side.tag)
		if err != nil {
			return err
		}

		var sum int64
		for _, icoord := range initial.Ranges() {
			ic, ok := icoord.(mapper.Coordinate)
			if !ok {
				sum += icoord.Length()
				continue
			}

			final, err := side.endToMiddle.Map(ic.ID, ic.Start, ic.End, ic.Strand, middleTag)
			if err != nil {
				return err
			}
			for _, fcoord := range final.Ranges() {
				if fc, ok := fcoord.(mapper.Coordinate); ok {
					start := genomics.Region{SeqRegionID: r.SeqRegionID, Start: r.Start + sum, End: r.Start + sum + fc.Length() - 1}
					end := genomics.Region{SeqRegionID: fc.ID, Start: fc.Start, End: fc.End}
					if side.tag == firstTag {
						err = cm.firstLast.Add(start, genomics.Forward, end, fc.Strand)
					} else {
						err = cm.firstLast.Add(end, fc.Strand, start, genomics.Forward)
					}
					if err != nil {
						return err
					}
				}
				sum += fcoord.Length()
			}
		}
	}
	return nil
}

// RegisterAll loads both hops completely and composes them.  The pair budget
// should be raised first or the next loading query will flush everything.
func (cm *ChainedAssemblyMapper) RegisterAll(ctx context.Context) error {
	if err := cm.registerAll(ctx); err != nil {
		cm.Flush()
		return err
	}
	return nil
}

func (cm *ChainedAssemblyMapper) registerAll(ctx context.Context) error {
	firstRows, err := cm.loader.LoadAllAlignments(ctx, cm.first, cm.middle)
	if err != nil {
		return fmt.Errorf("loading all %v -> %v alignments: %w", cm.first, cm.middle, err)
	}
	lastRows, err := cm.loader.LoadAllAlignments(ctx, cm.last, cm.middle)
	if err != nil {
		return fmt.Errorf("loading all %v -> %v alignments: %w", cm.last, cm.middle, err)
	}

	var ranges []genomics.Region
	firstEnds, lastEnds := make(map[int64]int64), make(map[int64]int64)
	for _, row := range firstRows {
		if err := cm.firstMiddle.Add(row.Source, genomics.Forward, row.Target, row.Ori); err != nil {
			return err
		}
		ranges = append(ranges, row.Source)
		trackEnd(firstEnds, row.Source)
	}
	for _, row := range lastRows {
		if err := cm.lastMiddle.Add(row.Source, genomics.Forward, row.Target, row.Ori); err != nil {
			return err
		}
		trackEnd(lastEnds, row.Source)
	}

	if err := cm.buildCombined(cm.firstSide(), ranges); err != nil {
		return err
	}
	if err := registerWhole(cm.firstRegistry, firstEnds); err != nil {
		return err
	}
	return registerWhole(cm.lastRegistry, lastEnds)
}
