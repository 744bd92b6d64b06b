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
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/googlegenomics/asmmap/assembly"
	"github.com/googlegenomics/asmmap/mapper"
	"github.com/googlegenomics/asmmap/registry"
)

// apiError is used to capture errors that have a name and status code in the
// service.
type apiError struct {
	name  string
	code  int
	cause error
}

func (err *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %v", err.name, err.code, err.cause)
}

func (err *apiError) Unwrap() error { return err.cause }

func newAPIError(name string, code int, context string, err error) error {
	return &apiError{name, code, fmt.Errorf("%s: %w", context, err)}
}

func newInvalidInputError(context string, err error) error {
	return newAPIError("InvalidInput", http.StatusBadRequest, context, err)
}

func newInvalidRangeError(err error) error {
	return &apiError{"InvalidRange", http.StatusBadRequest, err}
}

func newNotFoundError(context string, err error) error {
	return newAPIError("NotFound", http.StatusNotFound, context, err)
}

// classify turns errors of the mapping layer into API errors.  Errors with no
// API meaning are returned unchanged.
func classify(context string, err error) error {
	switch {
	case errors.Is(err, assembly.ErrUnknownSeqRegion), errors.Is(err, assembly.ErrNoMappingPath):
		return newNotFoundError(context, err)
	case errors.Is(err, mapper.ErrInvalidRange), errors.Is(err, registry.ErrInvalidRange):
		return newInvalidRangeError(fmt.Errorf("%s: %w", context, err))
	case errors.Is(err, assembly.ErrUnknownCoordSystem), errors.Is(err, mapper.ErrInvalidStrand):
		return newInvalidInputError(context, err)
	}
	return err
}

// writeError writes either a JSON object or bare HTTP error describing err.
// A JSON object is written only when the error has a name and code defined by
// the service.
func writeError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.code, gin.H{
			"error":   apiErr.name,
			"message": fmt.Sprintf("%s: %v", http.StatusText(apiErr.code), apiErr.cause),
		})
		c.Abort()
		return
	}
	c.String(http.StatusInternalServerError, "%s: %v", http.StatusText(http.StatusInternalServerError), err)
	c.Abort()
}
