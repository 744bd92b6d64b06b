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

package mapper

import (
	"errors"
	"testing"

	"github.com/googlegenomics/asmmap/genomics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	contigCS = &genomics.CoordSystem{ID: 1, Name: "contig"}
	chromCS  = &genomics.CoordSystem{ID: 2, Name: "chromosome", Version: "GRCh38"}
)

func region(id, start, end int64) genomics.Region {
	return genomics.Region{SeqRegionID: id, Start: start, End: end}
}

func newContigMapper(t *testing.T, pairs ...[2]genomics.Region) *Mapper {
	m := New("contig", "chromosome", contigCS, chromCS)
	for _, p := range pairs {
		require.NoError(t, m.Add(p[0], genomics.Forward, p[1], genomics.Forward))
	}
	return m
}

func TestMapSinglePair(t *testing.T) {
	m := newContigMapper(t, [2]genomics.Region{region(100, 1, 1000), region(7, 5001, 6000)})

	got, err := m.Map(100, 500, 600, genomics.Forward, "contig")
	require.NoError(t, err)
	assert.Equal(t, []Range{
		Coordinate{ID: 7, Start: 5500, End: 5600, Strand: genomics.Forward, CoordSystem: chromCS},
	}, got.Ranges())

	got, err = m.Map(7, 5500, 5600, genomics.Reverse, "chromosome")
	require.NoError(t, err)
	assert.Equal(t, []Range{
		Coordinate{ID: 100, Start: 500, End: 600, Strand: genomics.Reverse, CoordSystem: contigCS},
	}, got.Ranges())
}

func TestMapWholePairRoundTrip(t *testing.T) {
	testCases := []struct {
		name                        string
		fromStrand, toStrand, query genomics.Strand
	}{
		{"forward/forward", genomics.Forward, genomics.Forward, genomics.Forward},
		{"forward/reverse", genomics.Forward, genomics.Reverse, genomics.Forward},
		{"reverse query", genomics.Forward, genomics.Reverse, genomics.Reverse},
		{"double negation", genomics.Reverse, genomics.Forward, genomics.Reverse},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := New("contig", "chromosome", contigCS, chromCS)
			require.NoError(t, m.Add(region(3, 11, 20), tc.fromStrand, region(9, 101, 110), tc.toStrand))

			got, err := m.Map(3, 11, 20, tc.query, "contig")
			require.NoError(t, err)
			want := Coordinate{ID: 9, Start: 101, End: 110, Strand: tc.fromStrand * tc.toStrand * tc.query, CoordSystem: chromCS}
			assert.Equal(t, []Range{want}, got.Ranges())

			back, err := m.Map(9, 101, 110, tc.query, "chromosome")
			require.NoError(t, err)
			assert.Equal(t, []Range{
				Coordinate{ID: 3, Start: 11, End: 20, Strand: want.Strand, CoordSystem: contigCS},
			}, back.Ranges())
		})
	}
}

func TestMapReverseOrientationClipping(t *testing.T) {
	m := New("contig", "chromosome", contigCS, chromCS)
	require.NoError(t, m.Add(region(1, 1, 100), genomics.Forward, region(2, 1001, 1100), genomics.Reverse))

	got, err := m.Map(1, 11, 20, genomics.Forward, "contig")
	require.NoError(t, err)
	assert.Equal(t, []Range{
		Coordinate{ID: 2, Start: 1081, End: 1090, Strand: genomics.Reverse, CoordSystem: chromCS},
	}, got.Ranges())

	back, err := m.Map(2, 1081, 1090, genomics.Forward, "chromosome")
	require.NoError(t, err)
	assert.Equal(t, []Range{
		Coordinate{ID: 1, Start: 11, End: 20, Strand: genomics.Reverse, CoordSystem: contigCS},
	}, back.Ranges())
}

func TestMapSplitAcrossPairs(t *testing.T) {
	m := newContigMapper(t,
		[2]genomics.Region{region(200, 1, 500), region(2, 1, 500)},
		[2]genomics.Region{region(200, 501, 1000), region(2, 600, 1099)},
	)

	got, err := m.Map(200, 450, 550, genomics.Forward, "contig")
	require.NoError(t, err)
	assert.Equal(t, []Range{
		Coordinate{ID: 2, Start: 450, End: 500, Strand: genomics.Forward, CoordSystem: chromCS},
		Coordinate{ID: 2, Start: 600, End: 649, Strand: genomics.Forward, CoordSystem: chromCS},
	}, got.Ranges())

	got, err = m.Map(200, 450, 550, genomics.Reverse, "contig")
	require.NoError(t, err)
	assert.Equal(t, []Range{
		Coordinate{ID: 2, Start: 600, End: 649, Strand: genomics.Reverse, CoordSystem: chromCS},
		Coordinate{ID: 2, Start: 450, End: 500, Strand: genomics.Reverse, CoordSystem: chromCS},
	}, got.Ranges())
}

func TestMapGaps(t *testing.T) {
	m := newContigMapper(t,
		[2]genomics.Region{region(5, 101, 200), region(6, 1, 100)},
		[2]genomics.Region{region(5, 301, 400), region(6, 201, 300)},
	)

	testCases := []struct {
		name       string
		id         int64
		start, end int64
		want       []Range
	}{
		{"unknown id", 99, 1, 50, []Range{Gap{Start: 1, End: 50}}},
		{"before first pair", 5, 1, 50, []Range{Gap{Start: 1, End: 50}}},
		{"hole between pairs", 5, 150, 350, []Range{
			Coordinate{ID: 6, Start: 50, End: 100, Strand: 1, CoordSystem: chromCS},
			Gap{Start: 201, End: 300},
			Coordinate{ID: 6, Start: 201, End: 250, Strand: 1, CoordSystem: chromCS},
		}},
		{"leading and trailing", 5, 51, 450, []Range{
			Gap{Start: 51, End: 100},
			Coordinate{ID: 6, Start: 1, End: 100, Strand: 1, CoordSystem: chromCS},
			Gap{Start: 201, End: 300},
			Coordinate{ID: 6, Start: 201, End: 300, Strand: 1, CoordSystem: chromCS},
			Gap{Start: 401, End: 450},
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := m.Map(tc.id, tc.start, tc.end, genomics.Forward, "contig")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Ranges())
		})
	}
}

func TestMapAcrossChunks(t *testing.T) {
	const mb = 1 << ChunkFactor
	m := newContigMapper(t,
		[2]genomics.Region{region(1, mb-10, mb+10), region(2, 1, 21)},
		[2]genomics.Region{region(1, 3*mb, 3*mb+99), region(3, 1, 100)},
	)

	got, err := m.Map(1, 1, 4*mb, genomics.Forward, "contig")
	require.NoError(t, err)
	assert.Len(t, got.Coordinates(), 2)
	assert.Equal(t, 5, got.Len())

	got, err = m.Map(1, mb+5, mb+10, genomics.Forward, "contig")
	require.NoError(t, err)
	assert.Equal(t, []Range{
		Coordinate{ID: 2, Start: 16, End: 21, Strand: 1, CoordSystem: chromCS},
	}, got.Ranges())
}

func TestMapRankedPairs(t *testing.T) {
	m := newContigMapper(t,
		[2]genomics.Region{region(1, 1, 100), region(10, 1, 100)},
		[2]genomics.Region{region(1, 51, 150), region(11, 1, 100)},
	)

	got, err := m.Map(1, 1, 200, genomics.Forward, "contig")
	require.NoError(t, err)
	assert.Equal(t, []Range{
		Coordinate{ID: 10, Start: 1, End: 100, Strand: 1, Rank: 0, CoordSystem: chromCS},
		Coordinate{ID: 11, Start: 1, End: 100, Strand: 1, Rank: 1, CoordSystem: chromCS},
		Gap{Start: 151, End: 200},
	}, got.Ranges())
}

func TestFastMap(t *testing.T) {
	m := newContigMapper(t,
		[2]genomics.Region{region(200, 1, 500), region(2, 1, 500)},
		[2]genomics.Region{region(200, 501, 1000), region(2, 600, 1099)},
	)

	testCases := []struct {
		name       string
		start, end int64
	}{
		{"inside first", 10, 20},
		{"inside second", 600, 700},
		{"split", 450, 550},
		{"overhang", 900, 1100},
		{"outside", 2000, 2100},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			full, err := m.Map(200, tc.start, tc.end, genomics.Forward, "contig")
			require.NoError(t, err)
			fast, err := m.FastMap(200, tc.start, tc.end, genomics.Forward, "contig")
			require.NoError(t, err)

			if full.Len() == 1 && len(full.Coordinates()) == 1 {
				assert.Equal(t, full.Ranges(), fast.Ranges())
			} else {
				assert.Equal(t, 0, fast.Len())
			}
		})
	}
}

func TestMapInsert(t *testing.T) {
	m := newContigMapper(t,
		[2]genomics.Region{region(1, 1, 100), region(2, 1001, 1100)},
		[2]genomics.Region{region(1, 101, 200), region(3, 1, 100)},
	)

	got, err := m.Map(1, 51, 50, genomics.Forward, "contig")
	require.NoError(t, err)
	assert.Equal(t, []Range{
		Coordinate{ID: 2, Start: 1051, End: 1050, Strand: 1, CoordSystem: chromCS},
	}, got.Ranges())

	// The insert between the two pairs lands at the end of one and the start
	// of the other.
	got, err = m.Map(1, 101, 100, genomics.Forward, "contig")
	require.NoError(t, err)
	assert.Equal(t, []Range{
		Coordinate{ID: 2, Start: 1101, End: 1100, Strand: 1, CoordSystem: chromCS},
		Coordinate{ID: 3, Start: 1, End: 0, Strand: 1, CoordSystem: chromCS},
	}, got.Ranges())

	fast, err := m.FastMap(1, 101, 100, genomics.Forward, "contig")
	require.NoError(t, err)
	assert.Equal(t, 0, fast.Len())
}

func TestAddErrors(t *testing.T) {
	m := newContigMapper(t, [2]genomics.Region{region(1, 1, 100), region(2, 1, 100)})

	testCases := []struct {
		name     string
		from, to genomics.Region
		strand   genomics.Strand
		want     error
	}{
		{"inverted", region(1, 300, 200), region(2, 300, 400), 1, ErrInvalidRange},
		{"length mismatch", region(1, 300, 400), region(2, 300, 350), 1, ErrLengthMismatch},
		{"bad strand", region(1, 300, 400), region(2, 300, 400), 0, ErrInvalidStrand},
		{"overlap same target", region(1, 50, 149), region(2, 500, 599), 1, ErrOverlappingPair},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := m.Add(tc.from, genomics.Forward, tc.to, tc.strand)
			assert.True(t, errors.Is(err, tc.want), "got %v, want %v", err, tc.want)
		})
	}
	assert.Equal(t, 1, m.PairCount())
}

func TestAddDuplicateIsIgnored(t *testing.T) {
	m := newContigMapper(t, [2]genomics.Region{region(1, 1, 100), region(2, 1, 100)})
	assert.NoError(t, m.Add(region(1, 1, 100), genomics.Forward, region(2, 1, 100), genomics.Forward))
	assert.Equal(t, 1, m.PairCount())

	m.Flush()
	assert.Equal(t, 0, m.PairCount())
	got, err := m.Map(1, 1, 100, genomics.Forward, "contig")
	require.NoError(t, err)
	assert.Equal(t, []Range{Gap{Start: 1, End: 100}}, got.Ranges())
}

func TestMapErrors(t *testing.T) {
	m := newContigMapper(t)
	_, err := m.Map(1, 10, 5, genomics.Forward, "contig")
	assert.True(t, errors.Is(err, ErrInvalidRange))
	_, err = m.Map(1, 1, 5, genomics.Forward, "clone")
	assert.True(t, errors.Is(err, ErrUnknownTag))
	_, err = m.FastMap(1, 1, 5, 0, "contig")
	assert.True(t, errors.Is(err, ErrInvalidStrand))
	_, err = m.ListPairs(1, 10, 5, "contig")
	assert.True(t, errors.Is(err, ErrInvalidRange))
}

func TestListPairs(t *testing.T) {
	m := newContigMapper(t,
		[2]genomics.Region{region(1, 1, 100), region(2, 1, 100)},
		[2]genomics.Region{region(1, 101, 200), region(3, 1, 100)},
		[2]genomics.Region{region(1, 201, 300), region(2, 201, 300)},
	)

	pairs, err := m.ListPairs(1, 50, 150, "contig")
	require.NoError(t, err)
	assert.Equal(t, []Pair{
		{From: region(1, 1, 100), To: region(2, 1, 100), Ori: 1},
		{From: region(1, 101, 200), To: region(3, 1, 100), Ori: 1},
	}, pairs)

	ids, err := m.ListIDs(1, 1, 300, "contig")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)

	ids, err = m.ListIDs(3, 1, 10, "chromosome")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}
