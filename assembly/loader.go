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
	"errors"

	"github.com/googlegenomics/asmmap/genomics"
	"github.com/googlegenomics/asmmap/mapper"
)

// ErrUnknownSeqRegion is returned by resolvers for names or ids that do not
// refer to a sequence region.
var ErrUnknownSeqRegion = errors.New("unknown sequence region")

// Alignment is one row of an assembly table: Source on one coordinate system
// maps base for base onto Target on another, with relative orientation Ori.
type Alignment struct {
	Source, Target genomics.Region
	Ori            genomics.Strand
}

// RegionLoader fetches alignment rows from a backing store.  Rows for a given
// source sequence region must not overlap each other when they target the
// same sequence region.
type RegionLoader interface {
	// LoadAlignments returns the alignments from src onto dst whose Source
	// overlaps region.
	LoadAlignments(ctx context.Context, src, dst *genomics.CoordSystem, region genomics.Region) ([]Alignment, error)
	// LoadAllAlignments returns every alignment from src onto dst.
	LoadAllAlignments(ctx context.Context, src, dst *genomics.CoordSystem) ([]Alignment, error)
}

// SeqRegionResolver translates between caller-facing sequence region names
// and internal ids.
type SeqRegionResolver interface {
	// SeqRegionIDs returns the ids of the named sequence regions of cs, in
	// the order of names.
	SeqRegionIDs(ctx context.Context, cs *genomics.CoordSystem, names []string) ([]int64, error)
	// SeqRegionNames returns the names of the sequence regions with the
	// provided ids, in order.
	SeqRegionNames(ctx context.Context, ids []int64) ([]string, error)
}

// CoordMapper is implemented by AssemblyMapper and ChainedAssemblyMapper.
type CoordMapper interface {
	// Map transforms [start, end] on the named sequence region of cs onto the
	// other coordinate system of the mapper.
	Map(ctx context.Context, name string, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error)
	// FastMap is Map for queries expected to fall inside a single pair.
	FastMap(ctx context.Context, name string, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error)
	// MapToRegion is Map keeping only the coordinates on the named target
	// sequence region of the other coordinate system.  Gaps are kept.
	MapToRegion(ctx context.Context, name string, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem, target string) (*mapper.RangeSet, error)
	// MapID is Map with the sequence region given by id.
	MapID(ctx context.Context, id, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error)
	// FastMapID is FastMap with the sequence region given by id.
	FastMapID(ctx context.Context, id, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error)
	// ListIDs returns the ids of the sequence regions on the other coordinate
	// system overlapping the query.
	ListIDs(ctx context.Context, name string, start, end int64, cs *genomics.CoordSystem) ([]int64, error)
	// ListSeqRegions is ListIDs returning names.
	ListSeqRegions(ctx context.Context, name string, start, end int64, cs *genomics.CoordSystem) ([]string, error)
	// RegisterAll loads every alignment the mapper can use.
	RegisterAll(ctx context.Context) error
	// Size returns the number of pairs held.
	Size() int
	MaxPairCount() int
	SetMaxPairCount(n int)
	// Flush drops all pairs and registrations.
	Flush()
}
