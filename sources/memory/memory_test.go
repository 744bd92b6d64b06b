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

package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/googlegenomics/asmmap/assembly"
	"github.com/googlegenomics/asmmap/genomics"
	"github.com/googlegenomics/asmmap/internal/agp"
	"github.com/googlegenomics/asmmap/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	chromCS  = &genomics.CoordSystem{Name: "chromosome", Version: "GRCh38"}
	contigCS = &genomics.CoordSystem{Name: "contig"}
	cloneCS  = &genomics.CoordSystem{Name: "clone"}
)

func newStore(t *testing.T) *Store {
	s := New()
	require.NoError(t, s.AddRows(chromCS, contigCS, []agp.Row{
		{Object: "1", ObjectStart: 1, ObjectEnd: 1000, Component: "c1", ComponentStart: 1, ComponentEnd: 1000, Orientation: genomics.Forward},
		{Object: "1", ObjectStart: 1101, ObjectEnd: 2100, Component: "c2", ComponentStart: 501, ComponentEnd: 1500, Orientation: genomics.Reverse},
		{Object: "2", ObjectStart: 1, ObjectEnd: 50, Component: "c3", ComponentStart: 11, ComponentEnd: 60, Orientation: genomics.Forward},
	}))
	return s
}

func ids(t *testing.T, s *Store, cs *genomics.CoordSystem, names ...string) []int64 {
	got, err := s.SeqRegionIDs(context.Background(), cs, names)
	require.NoError(t, err)
	return got
}

func TestSeqRegions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	got := ids(t, s, chromCS, "1", "2")
	require.Len(t, got, 2)
	names, err := s.SeqRegionNames(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, names)

	sr, err := s.SeqRegion(got[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2100), sr.Length)
	assert.True(t, sr.CoordSystem == chromCS)

	// Coordinate systems are matched by value.
	assert.Equal(t, got[:1], ids(t, s, &genomics.CoordSystem{Name: "CHROMOSOME", Version: "GRCh38"}, "1"))

	_, err = s.SeqRegionIDs(ctx, contigCS, []string{"1"})
	assert.True(t, errors.Is(err, ErrUnknownSeqRegion))
	_, err = s.SeqRegionNames(ctx, []int64{999})
	assert.True(t, errors.Is(err, ErrUnknownSeqRegion))
	assert.Equal(t, got[1], s.AddSeqRegion(chromCS, "2", 10))
}

func TestLoadAlignments(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	chr1 := ids(t, s, chromCS, "1")[0]
	c2 := ids(t, s, contigCS, "c2")[0]

	rows, err := s.LoadAlignments(ctx, chromCS, contigCS, genomics.Region{SeqRegionID: chr1, Start: 900, End: 1101})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].Source.Start)
	assert.Equal(t, int64(1101), rows[1].Source.Start)
	assert.Equal(t, genomics.Reverse, rows[1].Ori)

	// Closed intervals: the gap between the rows matches nothing.
	rows, err = s.LoadAlignments(ctx, chromCS, contigCS, genomics.Region{SeqRegionID: chr1, Start: 1001, End: 1100})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = s.LoadAlignments(ctx, contigCS, chromCS, genomics.Region{SeqRegionID: c2, Start: 1500, End: 2000})
	require.NoError(t, err)
	assert.Equal(t, []assembly.Alignment{{
		Source: genomics.Region{SeqRegionID: c2, Start: 501, End: 1500},
		Target: genomics.Region{SeqRegionID: chr1, Start: 1101, End: 2100},
		Ori:    genomics.Reverse,
	}}, rows)

	_, err = s.LoadAlignments(ctx, chromCS, cloneCS, genomics.Region{SeqRegionID: chr1, Start: 1, End: 10})
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.LoadAlignments(cancelled, chromCS, contigCS, genomics.Region{SeqRegionID: chr1, Start: 1, End: 10})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoadAllAlignments(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	rows, err := s.LoadAllAlignments(ctx, contigCS, chromCS)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i-1].Source.SeqRegionID <= rows[i].Source.SeqRegionID)
	}
	contigs := ids(t, s, contigCS, "c1", "c2", "c3")
	for _, row := range rows {
		assert.Contains(t, contigs, row.Source.SeqRegionID)
	}
}

func TestAddAlignment(t *testing.T) {
	s := New()
	a := s.AddSeqRegion(cloneCS, "AC1", 100)
	b := s.AddSeqRegion(contigCS, "c1", 100)

	err := s.AddAlignment(cloneCS, contigCS, assembly.Alignment{
		Source: genomics.Region{SeqRegionID: a, Start: 1, End: 100},
		Target: genomics.Region{SeqRegionID: 42, Start: 1, End: 100},
		Ori:    genomics.Forward,
	})
	assert.True(t, errors.Is(err, ErrUnknownSeqRegion))

	require.NoError(t, s.AddAlignment(cloneCS, contigCS, assembly.Alignment{
		Source: genomics.Region{SeqRegionID: a, Start: 1, End: 100},
		Target: genomics.Region{SeqRegionID: b, Start: 1, End: 100},
		Ori:    genomics.Forward,
	}))
	rows, err := s.LoadAlignments(context.Background(), contigCS, cloneCS, genomics.Region{SeqRegionID: b, Start: 100, End: 100})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStoreServesAssemblyMapper(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	am, err := assembly.NewAssemblyMapper(s, s, chromCS, contigCS)
	require.NoError(t, err)

	got, err := am.Map(ctx, "c2", 1, 1000, genomics.Forward, contigCS)
	require.NoError(t, err)
	chr1 := ids(t, s, chromCS, "1")[0]
	assert.Equal(t, []genomics.Region{
		{SeqRegionID: chr1, Start: 1601, End: 2100},
	}, regions(got.Coordinates()))
	assert.Equal(t, 2, got.Len())

	names, err := am.ListSeqRegions(ctx, "1", 1, 2100, chromCS)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, names)
}

func regions(coords []mapper.Coordinate) []genomics.Region {
	var out []genomics.Region
	for _, c := range coords {
		out = append(out, genomics.Region{SeqRegionID: c.ID, Start: c.Start, End: c.End})
	}
	return out
}
