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

// window describes what to register for a query: the queried interval with
// its bounds in order, and the chunk-aligned interval enclosing it.
type window struct {
	start, end       int64
	minStart, minEnd int64
}

// newWindow returns the registration window of [start, end].  An insertion
// point (start == end+1) is registered as the two flanking bases.
func newWindow(start, end int64) (window, error) {
	if start == end+1 {
		start, end = end, start
	}
	if start > end {
		return window{}, fmt.Errorf("%w: start %d > end %d", mapper.ErrInvalidRange, start, end)
	}
	return window{
		start:    start,
		end:      end,
		minStart: (start >> mapper.ChunkFactor) << mapper.ChunkFactor,
		minEnd:   (((end >> mapper.ChunkFactor) + 1) << mapper.ChunkFactor) - 1,
	}, nil
}

func (w window) checkAndRegister(r *registry.Registry, id int64) ([]genomics.Region, error) {
	return r.CheckAndRegister(id, w.start, w.end, w.minStart, w.minEnd)
}

// registerExtent records that all of region has been loaded.
func registerExtent(r *registry.Registry, region genomics.Region) error {
	_, err := r.CheckAndRegister(region.SeqRegionID, region.Start, region.End, region.Start, region.End)
	return err
}

// registerWhole records sequence regions as loaded from 1 to the largest end
// seen for them.
func registerWhole(r *registry.Registry, ends map[int64]int64) error {
	for id, end := range ends {
		if err := registerExtent(r, genomics.Region{SeqRegionID: id, Start: 1, End: end}); err != nil {
			return err
		}
	}
	return nil
}

func trackEnd(ends map[int64]int64, region genomics.Region) {
	if region.End > ends[region.SeqRegionID] {
		ends[region.SeqRegionID] = region.End
	}
}

func resolveID(ctx context.Context, resolver SeqRegionResolver, cs *genomics.CoordSystem, name string) (int64, error) {
	if resolver == nil {
		return 0, errNoResolver
	}
	ids, err := resolver.SeqRegionIDs(ctx, cs, []string{name})
	if err != nil {
		return 0, fmt.Errorf("resolving %q in %v: %w", name, cs, err)
	}
	if len(ids) != 1 {
		return 0, fmt.Errorf("resolving %q in %v: got %d ids", name, cs, len(ids))
	}
	return ids[0], nil
}

func resolveNames(ctx context.Context, resolver SeqRegionResolver, ids []int64) ([]string, error) {
	if resolver == nil {
		return nil, errNoResolver
	}
	if len(ids) == 0 {
		return nil, nil
	}
	names, err := resolver.SeqRegionNames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving names of %v: %w", ids, err)
	}
	return names, nil
}

// onRegion returns the gaps of set and those of its coordinates that lie on
// sequence region id.
func onRegion(set *mapper.RangeSet, id int64) *mapper.RangeSet {
	kept := mapper.NewRangeSet()
	for _, r := range set.Ranges() {
		if c, ok := r.(mapper.Coordinate); ok && c.ID != id {
			continue
		}
		kept.Append(r)
	}
	return kept
}

func nopLogf(string, ...interface{}) {}
