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

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/googlegenomics/asmmap/assembly"
	"github.com/googlegenomics/asmmap/genomics"
	"github.com/googlegenomics/asmmap/internal/agp"
	"github.com/googlegenomics/asmmap/sources/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	chromCS  = &genomics.CoordSystem{Name: "chromosome", Version: "GRCh38"}
	contigCS = &genomics.CoordSystem{Name: "contig"}
	cloneCS  = &genomics.CoordSystem{Name: "clone"}
)

type systems map[string]*genomics.CoordSystem

func (s systems) CoordSystem(ref string) (*genomics.CoordSystem, error) {
	parsed, err := genomics.ParseCoordSystem(ref)
	if err != nil {
		return nil, err
	}
	if cs, ok := s[parsed.Key()]; ok {
		return cs, nil
	}
	return nil, fmt.Errorf("undeclared coordinate system %q", ref)
}

func (s systems) Systems() []*genomics.CoordSystem {
	var css []*genomics.CoordSystem
	for _, cs := range s {
		css = append(css, cs)
	}
	sort.Slice(css, func(i, j int) bool { return css[i].Compare(css[j]) < 0 })
	return css
}

func setupRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	store := memory.New()
	require.NoError(t, store.AddRows(chromCS, contigCS, []agp.Row{
		{Object: "1", ObjectStart: 5001, ObjectEnd: 6000, Component: "ctg1", ComponentStart: 1, ComponentEnd: 1000, Orientation: genomics.Forward},
		{Object: "1", ObjectStart: 6001, ObjectEnd: 7000, Component: "ctg2", ComponentStart: 1, ComponentEnd: 1000, Orientation: genomics.Reverse},
	}))

	cache := assembly.NewCache(store, store)
	require.NoError(t, cache.AddMappingPath(chromCS, contigCS))

	server := NewServer(cache, systems{
		chromCS.Key():  chromCS,
		contigCS.Key(): contigCS,
		cloneCS.Key():  cloneCS,
	})
	router := gin.New()
	server.Export(router)
	return router
}

func get(router *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", url, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestMapRoute(t *testing.T) {
	router := setupRouter(t)

	w := get(router, "/map/contig/ctg1?start=500&end=600&to=chromosome:GRCh38")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Ranges []Range `json:"ranges"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []Range{
		{Type: "coordinate", ID: 1, Start: 5500, End: 5600, Strand: 1, CoordSystem: "chromosome:GRCh38"},
	}, got.Ranges)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = get(router, "/map/chromosome:GRCh38/1?start=4951&end=5050&strand=-1&to=contig")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []Range{
		{Type: "coordinate", ID: 2, Start: 1, End: 50, Strand: -1, CoordSystem: "contig"},
		{Type: "gap", Start: 4951, End: 5000},
	}, got.Ranges)

	w = get(router, "/map/chromosome:GRCh38/1?start=5990&end=6010&fast=true&to=contig")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got.Ranges)
}

func TestMapRouteToRegion(t *testing.T) {
	router := setupRouter(t)
	var got struct {
		Ranges []Range `json:"ranges"`
	}

	w := get(router, "/map/chromosome:GRCh38/1?start=5990&end=6010&to=contig&to_region=ctg2")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []Range{
		{Type: "coordinate", ID: 3, Start: 991, End: 1000, Strand: -1, CoordSystem: "contig"},
	}, got.Ranges)

	w = get(router, "/map/chromosome:GRCh38/1?start=4991&end=5010&to=contig&to_region=ctg1")
	require.Equal(t, http.StatusOK, w.Code)
	got.Ranges = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []Range{
		{Type: "gap", Start: 4991, End: 5000},
		{Type: "coordinate", ID: 2, Start: 1, End: 10, Strand: 1, CoordSystem: "contig"},
	}, got.Ranges)

	w = get(router, "/map/chromosome:GRCh38/1?start=5990&end=6010&to=contig&to_region=nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSystemsRoute(t *testing.T) {
	router := setupRouter(t)
	w := get(router, "/systems")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"coord_systems":["chromosome:GRCh38","clone","contig"]}`, w.Body.String())
}

func TestListRoutes(t *testing.T) {
	router := setupRouter(t)

	w := get(router, "/ids/chromosome:GRCh38/1?start=5500&end=6500&to=contig")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ids":[2,3]}`, w.Body.String())

	w = get(router, "/regions/chromosome:GRCh38/1?start=5500&end=6500&to=contig")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"regions":["ctg1","ctg2"]}`, w.Body.String())

	w = get(router, "/regions/chromosome:GRCh38/1?start=1&end=10&to=contig")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"regions":[]}`, w.Body.String())
}

func TestRequestIDIsForwarded(t *testing.T) {
	router := setupRouter(t)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ids/contig/ctg1?start=1&end=10&to=chromosome:GRCh38", nil)
	req.Header.Set(RequestIDHeader, "abc")
	req.Header.Set("Origin", "http://example.com")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestFlushRoute(t *testing.T) {
	router := setupRouter(t)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/flush", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestErrors(t *testing.T) {
	router := setupRouter(t)
	testCases := []struct {
		name string
		url  string
		code int
		err  string
	}{
		{"unknown coordinate system", "/map/scaffold/1?start=1&end=2&to=contig", http.StatusBadRequest, "InvalidInput"},
		{"missing target", "/map/contig/ctg1?start=1&end=2", http.StatusBadRequest, "InvalidInput"},
		{"missing start", "/map/contig/ctg1?end=2&to=chromosome:GRCh38", http.StatusBadRequest, "InvalidInput"},
		{"bad end", "/map/contig/ctg1?start=1&end=x&to=chromosome:GRCh38", http.StatusBadRequest, "InvalidInput"},
		{"bad strand", "/map/contig/ctg1?start=1&end=2&strand=2&to=chromosome:GRCh38", http.StatusBadRequest, "InvalidInput"},
		{"inverted range", "/map/contig/ctg1?start=10&end=2&to=chromosome:GRCh38", http.StatusBadRequest, "InvalidRange"},
		{"unknown region", "/map/contig/nope?start=1&end=2&to=chromosome:GRCh38", http.StatusNotFound, "NotFound"},
		{"no mapping path", "/map/contig/ctg1?start=1&end=2&to=clone", http.StatusNotFound, "NotFound"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(router, tc.url)
			assert.Equal(t, tc.code, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.err, body["error"])
		})
	}
}
