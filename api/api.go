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

// Package api implements an HTTP service that maps sequence regions between
// coordinate systems.
//
// The service exposes:
//
//	GET  /map/:cs/:name?start=&end=&to=[&strand=][&fast=][&to_region=]
//	GET  /ids/:cs/:name?start=&end=&to=
//	GET  /regions/:cs/:name?start=&end=&to=
//	GET  /systems
//	POST /flush
//
// where coordinate systems are written "name" or "name:version".
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/googlegenomics/asmmap/assembly"
	"github.com/googlegenomics/asmmap/genomics"
	"github.com/googlegenomics/asmmap/mapper"
)

// RequestIDHeader carries the id assigned to each request.
const RequestIDHeader = "X-Request-Id"

var (
	errMissingParameter = errors.New("missing parameter")
	errInvalidStrand    = errors.New("strand must be 1 or -1")
)

// CoordSystems looks up the coordinate systems the service knows about.
type CoordSystems interface {
	CoordSystem(ref string) (*genomics.CoordSystem, error)
	Systems() []*genomics.CoordSystem
}

// Server provides the mapping service.  Must be created with NewServer.
type Server struct {
	cache   *assembly.Cache
	systems CoordSystems

	// mu serializes mapper calls; registering and loading a region must not
	// interleave with another query on the same mapper.
	mu sync.Mutex
}

// NewServer returns a Server answering queries with the mappers of cache.
func NewServer(cache *assembly.Cache, systems CoordSystems) *Server {
	return &Server{cache: cache, systems: systems}
}

// Export registers the service endpoints with router.
func (server *Server) Export(router gin.IRouter) {
	router.Use(requestID, forwardOrigin)
	router.GET("/map/:cs/:name", server.serveMap)
	router.GET("/ids/:cs/:name", server.serveIDs)
	router.GET("/regions/:cs/:name", server.serveRegions)
	router.GET("/systems", server.serveSystems)
	router.POST("/flush", server.serveFlush)
}

// NewRouter returns a gin engine with the default middleware serving the
// endpoints of server.
func NewRouter(server *Server) *gin.Engine {
	router := gin.Default()
	server.Export(router)
	return router
}

// query is a parsed mapping request.
type query struct {
	name       string
	start, end int64
	strand     genomics.Strand
	from, to   *genomics.CoordSystem
}

func (server *Server) parseQuery(c *gin.Context) (*query, error) {
	q := &query{name: c.Param("name"), strand: genomics.Forward}

	var err error
	if q.from, err = server.systems.CoordSystem(c.Param("cs")); err != nil {
		return nil, newInvalidInputError("parsing coordinate system", err)
	}
	to := c.Query("to")
	if to == "" {
		return nil, newInvalidInputError("parsing target coordinate system", fmt.Errorf("%w: to", errMissingParameter))
	}
	if q.to, err = server.systems.CoordSystem(to); err != nil {
		return nil, newInvalidInputError("parsing target coordinate system", err)
	}
	if q.start, err = parsePosition(c, "start"); err != nil {
		return nil, err
	}
	if q.end, err = parsePosition(c, "end"); err != nil {
		return nil, err
	}
	if strand := c.Query("strand"); strand != "" {
		n, err := strconv.Atoi(strand)
		if err != nil || !genomics.Strand(n).Valid() {
			return nil, newInvalidInputError("parsing strand", errInvalidStrand)
		}
		q.strand = genomics.Strand(n)
	}
	if q.start > q.end+1 {
		return nil, newInvalidRangeError(fmt.Errorf("start %d > end %d", q.start, q.end))
	}
	return q, nil
}

func parsePosition(c *gin.Context, param string) (int64, error) {
	value := c.Query(param)
	if value == "" {
		return 0, newInvalidInputError("parsing "+param, fmt.Errorf("%w: %s", errMissingParameter, param))
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, newInvalidInputError("parsing "+param, err)
	}
	return n, nil
}

// withMapper parses the request and runs f on the mapper between its
// coordinate systems while holding the server lock.
func (server *Server) withMapper(c *gin.Context, f func(ctx context.Context, m assembly.CoordMapper, q *query) error) {
	q, err := server.parseQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	m, err := server.cache.Mapper(q.from, q.to)
	if err != nil {
		writeError(c, classify("finding mapper", err))
		return
	}
	if err := f(c.Request.Context(), m, q); err != nil {
		writeError(c, classify("mapping", err))
	}
}

func (server *Server) serveMap(c *gin.Context) {
	server.withMapper(c, func(ctx context.Context, m assembly.CoordMapper, q *query) error {
		mapFunc := m.Map
		if fast, _ := strconv.ParseBool(c.Query("fast")); fast {
			mapFunc = m.FastMap
		}
		if target := c.Query("to_region"); target != "" {
			mapFunc = func(ctx context.Context, name string, start, end int64, strand genomics.Strand, cs *genomics.CoordSystem) (*mapper.RangeSet, error) {
				return m.MapToRegion(ctx, name, start, end, strand, cs, target)
			}
		}
		result, err := mapFunc(ctx, q.name, q.start, q.end, q.strand, q.from)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{"ranges": encodeRanges(result)})
		return nil
	})
}

func (server *Server) serveIDs(c *gin.Context) {
	server.withMapper(c, func(ctx context.Context, m assembly.CoordMapper, q *query) error {
		ids, err := m.ListIDs(ctx, q.name, q.start, q.end, q.from)
		if err != nil {
			return err
		}
		if ids == nil {
			ids = []int64{}
		}
		c.JSON(http.StatusOK, gin.H{"ids": ids})
		return nil
	})
}

func (server *Server) serveRegions(c *gin.Context) {
	server.withMapper(c, func(ctx context.Context, m assembly.CoordMapper, q *query) error {
		names, err := m.ListSeqRegions(ctx, q.name, q.start, q.end, q.from)
		if err != nil {
			return err
		}
		if names == nil {
			names = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"regions": names})
		return nil
	})
}

func (server *Server) serveSystems(c *gin.Context) {
	names := []string{}
	for _, cs := range server.systems.Systems() {
		names = append(names, cs.String())
	}
	c.JSON(http.StatusOK, gin.H{"coord_systems": names})
}

func (server *Server) serveFlush(c *gin.Context) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.cache.Flush()
	c.Status(http.StatusNoContent)
}

// Range is the JSON form of a mapped coordinate or gap.
type Range struct {
	Type        string `json:"type"`
	ID          int64  `json:"id,omitempty"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	Strand      int    `json:"strand,omitempty"`
	Rank        int    `json:"rank"`
	CoordSystem string `json:"coord_system,omitempty"`
}

func encodeRanges(set *mapper.RangeSet) []Range {
	ranges := make([]Range, 0, set.Len())
	for _, r := range set.Ranges() {
		switch r := r.(type) {
		case mapper.Coordinate:
			ranges = append(ranges, Range{
				Type:        "coordinate",
				ID:          r.ID,
				Start:       r.Start,
				End:         r.End,
				Strand:      int(r.Strand),
				Rank:        r.Rank,
				CoordSystem: r.CoordSystem.String(),
			})
		case mapper.Gap:
			ranges = append(ranges, Range{Type: "gap", Start: r.Start, End: r.End, Rank: r.Rank})
		}
	}
	return ranges
}

// requestID tags every request and response with an id, reusing the one sent
// by the client if any.
func requestID(c *gin.Context) {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.Set("requestID", id)
	c.Header(RequestIDHeader, id)
	c.Next()
}

func forwardOrigin(c *gin.Context) {
	if origin := c.GetHeader("Origin"); origin != "" {
		c.Header("Access-Control-Allow-Origin", origin)
	}
	c.Next()
}
