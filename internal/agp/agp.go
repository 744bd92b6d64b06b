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

// Package agp provides support for parsing AGP (A Golden Path) files, which
// describe how an assembled sequence is built from components.
package agp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/googlegenomics/asmmap/genomics"
)

const columns = 9

var (
	errColumnCount = errors.New("wrong number of columns")
	errLengths     = errors.New("object and component lengths differ")
)

// Row is one component line of an AGP file: bases ObjectStart to ObjectEnd
// of Object are ComponentStart to ComponentEnd of Component, read in
// Orientation.
type Row struct {
	Object                       string
	ObjectStart, ObjectEnd       int64
	Part                         int
	Type                         string
	Component                    string
	ComponentStart, ComponentEnd int64
	Orientation                  genomics.Strand
}

// IsGap reports whether an AGP component type describes a gap.
func IsGap(componentType string) bool {
	return componentType == "N" || componentType == "U"
}

// Parse reads every component row of an AGP file.  Comment lines and gap
// lines are skipped.
func Parse(r io.Reader) ([]Row, error) {
	var rows []Row

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < columns-1 || len(fields) > columns {
			return nil, fmt.Errorf("line %d: %w: got %d, want %d", line, errColumnCount, len(fields), columns)
		}
		if IsGap(fields[4]) {
			continue
		}
		if len(fields) != columns {
			return nil, fmt.Errorf("line %d: %w: got %d, want %d", line, errColumnCount, len(fields), columns)
		}

		row, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading AGP: %w", err)
	}
	return rows, nil
}

func parseRow(fields []string) (Row, error) {
	row := Row{
		Object:    fields[0],
		Type:      fields[4],
		Component: fields[5],
	}

	var err error
	if row.ObjectStart, err = parsePosition("object_beg", fields[1]); err != nil {
		return row, err
	}
	if row.ObjectEnd, err = parsePosition("object_end", fields[2]); err != nil {
		return row, err
	}
	if row.Part, err = strconv.Atoi(fields[3]); err != nil {
		return row, fmt.Errorf("invalid part_number %q: %w", fields[3], err)
	}
	if row.ComponentStart, err = parsePosition("component_beg", fields[6]); err != nil {
		return row, err
	}
	if row.ComponentEnd, err = parsePosition("component_end", fields[7]); err != nil {
		return row, err
	}
	if row.Orientation, err = parseOrientation(fields[8]); err != nil {
		return row, err
	}

	if row.ObjectStart > row.ObjectEnd || row.ComponentStart > row.ComponentEnd {
		return row, fmt.Errorf("inverted interval in %s:%d-%d / %s:%d-%d",
			row.Object, row.ObjectStart, row.ObjectEnd, row.Component, row.ComponentStart, row.ComponentEnd)
	}
	if row.ObjectEnd-row.ObjectStart != row.ComponentEnd-row.ComponentStart {
		return row, fmt.Errorf("%w: %s:%d-%d / %s:%d-%d", errLengths,
			row.Object, row.ObjectStart, row.ObjectEnd, row.Component, row.ComponentStart, row.ComponentEnd)
	}
	return row, nil
}

func parsePosition(column, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", column, value, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid %s %d: positions start at 1", column, n)
	}
	return n, nil
}

func parseOrientation(value string) (genomics.Strand, error) {
	switch value {
	case "+", "?", "0", "na":
		return genomics.Forward, nil
	case "-":
		return genomics.Reverse, nil
	}
	return 0, fmt.Errorf("invalid orientation %q", value)
}
