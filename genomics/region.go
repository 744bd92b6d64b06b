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

// Package genomics contains definitions related to Genomic data.
package genomics

import "fmt"

// Strand is the orientation of a sequence region relative to another.
type Strand int8

const (
	Reverse Strand = -1
	Forward Strand = 1
)

// Valid reports whether s is either Forward or Reverse.
func (s Strand) Valid() bool {
	return s == Forward || s == Reverse
}

func (s Strand) String() string {
	switch s {
	case Forward:
		return "+"
	case Reverse:
		return "-"
	}
	return fmt.Sprintf("%d", int8(s))
}

// Region defines a region of genomic interest.
type Region struct {
	// SeqRegionID identifies the sequence region (chromosome, contig, clone,
	// ...) the interval is expressed on.
	SeqRegionID int64
	// Start and End specify the closed range (in base pairs, 1-based) relative
	// to the sequence region.
	Start, End int64
}

// Length returns the number of bases covered by region.
func (region Region) Length() int64 {
	return region.End - region.Start + 1
}

// Contains reports whether other lies entirely inside region.
func (region Region) Contains(other Region) bool {
	return region.SeqRegionID == other.SeqRegionID &&
		region.Start <= other.Start && other.End <= region.End
}

func (region Region) String() string {
	return fmt.Sprintf("[region:%d, start:%d, end:%d]", region.SeqRegionID, region.Start, region.End)
}
