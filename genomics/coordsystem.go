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

package genomics

import (
	"errors"
	"fmt"
	"strings"
)

var errMissingCoordSystemName = errors.New("no coordinate system name specified")

// CoordSystem is a named, versioned space in which positions are expressed,
// for example the chromosomes of an assembly or the contigs it was built from.
type CoordSystem struct {
	// ID is the internal identifier.  Zero means unassigned, in which case
	// comparisons fall back to the name and version.
	ID      int64
	Name    string
	Version string
}

// ParseCoordSystem parses "name" or "name:version".
func ParseCoordSystem(s string) (*CoordSystem, error) {
	name, version := s, ""
	if i := strings.IndexByte(s, ':'); i >= 0 {
		name, version = s[:i], s[i+1:]
	}
	if name == "" {
		return nil, errMissingCoordSystemName
	}
	return &CoordSystem{Name: name, Version: version}, nil
}

// Equal reports whether cs and other describe the same coordinate system.
func (cs *CoordSystem) Equal(other *CoordSystem) bool {
	if cs == other {
		return true
	}
	if cs == nil || other == nil {
		return false
	}
	if cs.ID != 0 && other.ID != 0 {
		return cs.ID == other.ID
	}
	return strings.EqualFold(cs.Name, other.Name) && cs.Version == other.Version
}

// Compare orders coordinate systems by name and version, then by ID when both
// have one.  It returns 0 exactly when Equal reports true, and -1 or +1
// otherwise.
func (cs *CoordSystem) Compare(other *CoordSystem) int {
	if cs.Equal(other) {
		return 0
	}
	switch {
	case cs == nil:
		return -1
	case other == nil:
		return 1
	}
	if c := strings.Compare(strings.ToLower(cs.Name), strings.ToLower(other.Name)); c != 0 {
		return c
	}
	if c := strings.Compare(cs.Version, other.Version); c != 0 {
		return c
	}
	if cs.ID < other.ID {
		return -1
	}
	return 1
}

// Key returns a string identifying cs by value, suitable for map keys.  The
// key of a nil coordinate system is empty.
func (cs *CoordSystem) Key() string {
	if cs == nil {
		return ""
	}
	return strings.ToLower(cs.Name) + ":" + cs.Version
}

func (cs *CoordSystem) String() string {
	if cs == nil {
		return "<nil>"
	}
	if cs.Version == "" {
		return cs.Name
	}
	return fmt.Sprintf("%s:%s", cs.Name, cs.Version)
}
