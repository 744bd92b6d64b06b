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

// Package asmmap serves the coordinate mapping API on App Engine.  The
// configuration file is named by the ASMMAP_CONFIG environment variable and
// gs:// sources are read with the application's service account.
package asmmap

import (
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/googlegenomics/asmmap/api"
	"github.com/googlegenomics/asmmap/internal/bootstrap"
	"github.com/googlegenomics/asmmap/internal/config"
	"github.com/googlegenomics/asmmap/sources/gcs"
	"google.golang.org/appengine"
)

var (
	once    sync.Once
	handler http.Handler
	initErr error
)

func init() {
	http.HandleFunc("/", serve)
}

func serve(w http.ResponseWriter, req *http.Request) {
	once.Do(func() { handler, initErr = newHandler(req) })
	if initErr != nil {
		http.Error(w, initErr.Error(), http.StatusInternalServerError)
		return
	}
	handler.ServeHTTP(w, req)
}

// newHandler loads the sources on the first request, which is the first time
// an App Engine context is available.
func newHandler(req *http.Request) (http.Handler, error) {
	ctx := appengine.NewContext(req)

	cfg, err := config.Load(os.Getenv("ASMMAP_CONFIG"))
	if err != nil {
		return nil, err
	}
	client, err := gcs.NewDefaultClient(ctx)
	if err != nil {
		return nil, err
	}
	cache, _, err := bootstrap.Build(ctx, cfg, client)
	if err != nil {
		return nil, err
	}
	cache.Logf = log.Printf

	router := gin.New()
	router.Use(gin.Recovery())
	api.NewServer(cache, cfg).Export(router)
	return router, nil
}
