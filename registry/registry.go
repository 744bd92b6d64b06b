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

// Package registry keeps track of which parts of which sequence regions have
// already been loaded from a backing store.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/googlegenomics/asmmap/genomics"
)

// ErrInvalidRange is returned when the requested interval is inverted or not
// enclosed by the minimum registration interval.
var ErrInvalidRange = errors.New("invalid registration range")

type span struct {
	start, end int64
}

// Registry records, per sequence region, a sorted list of disjoint and
// non-adjacent registered intervals.  Registration is monotonic until Flush.
// The zero value is not usable; create registries with New.
type Registry struct {
	ranges map[int64][]span
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{ranges: make(map[int64][]span)}
}

// Flush forgets every registered interval.
func (r *Registry) Flush() {
	r.ranges = make(map[int64][]span)
}

// Ranges returns the registered intervals of sequence region id in order.
func (r *Registry) Ranges(id int64) []genomics.Region {
	var regions []genomics.Region
	for _, s := range r.ranges[id] {
		regions = append(regions, genomics.Region{SeqRegionID: id, Start: s.start, End: s.end})
	}
	return regions
}

// CheckAndRegister checks whether [start, end] of sequence region id is
// already registered.  If it is, nil is returned.  Otherwise the parts of the
// enclosing interval [minStart, minEnd] that are not yet registered are
// returned in order and the whole of [minStart, minEnd] is recorded as
// registered, merged with any overlapping or adjacent intervals.
func (r *Registry) CheckAndRegister(id, start, end, minStart, minEnd int64) ([]genomics.Region, error) {
	if start > end {
		return nil, fmt.Errorf("%w: start %d > end %d", ErrInvalidRange, start, end)
	}
	if minStart > start || minEnd < end {
		return nil, fmt.Errorf("%w: [%d, %d] does not enclose [%d, %d]", ErrInvalidRange, minStart, minEnd, start, end)
	}

	list := r.ranges[id]
	if len(list) == 0 {
		r.ranges[id] = []span{{minStart, minEnd}}
		return []genomics.Region{{SeqRegionID: id, Start: minStart, End: minEnd}}, nil
	}

	// The first interval that could touch [minStart-1, ...].
	first := sort.Search(len(list), func(i int) bool {
		return list[i].end >= minStart-1
	})

	var gaps []genomics.Region
	cursor := minStart
	last := first
	for ; last < len(list) && list[last].start <= minEnd+1; last++ {
		s := list[last]
		if s.start <= start && s.end >= end {
			return nil, nil
		}
		if s.start > cursor {
			gaps = append(gaps, genomics.Region{SeqRegionID: id, Start: cursor, End: min(s.start-1, minEnd)})
		}
		if s.end+1 > cursor {
			cursor = s.end + 1
		}
	}
	if cursor <= minEnd {
		gaps = append(gaps, genomics.Region{SeqRegionID: id, Start: cursor, End: minEnd})
	}

	// list[first:last] are the intervals overlapping or adjacent to
	// [minStart, minEnd]; replace them with their union.
	merged := span{minStart, minEnd}
	if first < last {
		merged.start = min(merged.start, list[first].start)
		merged.end = max(merged.end, list[last-1].end)
	}
	updated := make([]span, 0, len(list)-(last-first)+1)
	updated = append(updated, list[:first]...)
	updated = append(updated, merged)
	updated = append(updated, list[last:]...)
	r.ranges[id] = updated

	return gaps, nil
}
