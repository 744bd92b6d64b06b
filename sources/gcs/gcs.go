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

// Package gcs loads AGP objects from Google Cloud Storage into a memory
// store.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/googlegenomics/asmmap/genomics"
	"github.com/googlegenomics/asmmap/internal/agp"
	"github.com/googlegenomics/asmmap/sources/memory"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object does not exist")
	// ErrPermissionDenied is returned when the credentials in use may not
	// read an object.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidAuthentication is returned when the credentials in use are
	// rejected.
	ErrInvalidAuthentication = errors.New("invalid authentication")
)

// Client is an interface to the storage engine.
type Client interface {
	// NewObjectHandle returns a handle to a specified object in the storage
	// engine.
	NewObjectHandle(bucket, object string) ObjectHandle
}

// ObjectHandle is an interface to one object of the storage engine.
type ObjectHandle interface {
	// NewReader returns a reader of the whole object.
	NewReader(ctx context.Context) (io.ReadCloser, error)
}

// GCSClient is Client for accessing Google Cloud Storage.
type GCSClient struct {
	*storage.Client
}

// NewObjectHandle returns a handle to a specified object in the storage
// engine.
func (c GCSClient) NewObjectHandle(bucket, object string) ObjectHandle {
	return gcsObjectHandle{c.Bucket(bucket).Object(object)}
}

type gcsObjectHandle struct {
	*storage.ObjectHandle
}

func (h gcsObjectHandle) NewReader(ctx context.Context) (io.ReadCloser, error) {
	return h.ObjectHandle.NewReader(ctx)
}

// NewDefaultClient returns a storage client that uses the application default
// credentials.
func NewDefaultClient(ctx context.Context) (GCSClient, error) {
	return newClient(ctx)
}

// NewPublicClient returns a storage client that does not use any form of
// client authorization.  It can only read publicly-readable objects.
func NewPublicClient(ctx context.Context) (GCSClient, error) {
	return newClient(ctx, option.WithHTTPClient(http.DefaultClient))
}

// NewClientFromToken returns a storage client that authenticates with a
// static OAuth2 bearer token.
func NewClientFromToken(ctx context.Context, accessToken string) (GCSClient, error) {
	token := oauth2.Token{
		TokenType:   "Bearer",
		AccessToken: accessToken,
	}
	return newClient(ctx, option.WithTokenSource(oauth2.StaticTokenSource(&token)))
}

func newClient(ctx context.Context, opts ...option.ClientOption) (GCSClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return GCSClient{}, fmt.Errorf("creating storage client: %w", err)
	}
	return GCSClient{client}, nil
}

// Source is an AGP object whose objects are sequence regions of Assembled and
// whose components are sequence regions of Component.
type Source struct {
	Assembled, Component *genomics.CoordSystem
	Bucket, Object       string
}

func (s Source) String() string {
	return fmt.Sprintf("gs://%s/%s", s.Bucket, s.Object)
}

// Load reads and parses every source concurrently and adds their rows to
// store in the order the sources are listed.
func Load(ctx context.Context, client Client, store *memory.Store, sources []Source) error {
	parsed := make([][]agp.Row, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			rows, err := read(ctx, client, src)
			if err != nil {
				return err
			}
			parsed[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, src := range sources {
		if err := store.AddRows(src.Assembled, src.Component, parsed[i]); err != nil {
			return fmt.Errorf("loading %v: %w", src, err)
		}
	}
	return nil
}

func read(ctx context.Context, client Client, src Source) ([]agp.Row, error) {
	r, err := client.NewObjectHandle(src.Bucket, src.Object).NewReader(ctx)
	if err != nil {
		return nil, newStorageError(fmt.Sprintf("opening %v", src), err)
	}
	defer r.Close()

	rows, err := agp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing %v: %w", src, err)
	}
	return rows, nil
}

// storageError keeps the underlying storage error available to errors.As
// while classifying it with one of the package sentinels.
type storageError struct {
	context string
	kind    error
	cause   error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.context, e.kind, e.cause)
}

func (e *storageError) Is(target error) bool { return target == e.kind }
func (e *storageError) Unwrap() error        { return e.cause }

func newStorageError(context string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return &storageError{context, ErrNotFound, err}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return &storageError{context, ErrNotFound, err}
		case http.StatusUnauthorized:
			return &storageError{context, ErrInvalidAuthentication, err}
		case http.StatusForbidden:
			return &storageError{context, ErrPermissionDenied, err}
		}
	}
	return fmt.Errorf("%s: %w", context, err)
}
