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

// This binary provides a coordinate mapping server over AGP files stored
// locally or in GCS.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/googlegenomics/asmmap/api"
	"github.com/googlegenomics/asmmap/internal/bootstrap"
	"github.com/googlegenomics/asmmap/internal/config"
	"github.com/googlegenomics/asmmap/sources/gcs"
	"github.com/pkg/profile"
)

var (
	port       = flag.Int("port", 80, "HTTP service port")
	configFile = flag.String("config", "", "TOML configuration file")

	maxPairCount  = flag.Int("max_pair_count", 0, "if set, overrides the pair budget of the configuration")
	registerAll   = flag.Bool("register_all", false, "load every mapping path completely at startup")
	publicStorage = flag.Bool("public_storage", false, "read gs:// sources without credentials")
	accessToken   = flag.String("access_token", "", "if set, read gs:// sources with this OAuth2 bearer token")

	secure    = flag.Bool("secure", false, "serve in HTTPS-only mode")
	httpsCert = flag.String("https_cert", "", "HTTPS certificate file")
	httpsKey  = flag.String("https_key", "", "HTTPS key file")

	cpuProfileDir = flag.String("cpuprofile_dir", "", "if set, write a CPU profile to this directory on exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s -config FILE [flags]\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprint(flag.CommandLine.Output(), config.Help)
	}
	flag.Parse()

	if *configFile == "" {
		log.Fatalf("You must specify a -config file.")
	}
	if *publicStorage && *accessToken != "" {
		log.Fatalf("You cannot specify both -public_storage and -access_token.")
	}
	if *secure && (*httpsCert == "" || *httpsKey == "") {
		log.Fatalf("You must specify both -https_cert and -https_key in secure mode.")
	}
	if *cpuProfileDir != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*cpuProfileDir)).Stop()
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	var client gcs.Client
	if hasStorageSources(cfg) {
		newClient := gcs.NewDefaultClient
		switch {
		case *publicStorage:
			newClient = gcs.NewPublicClient
		case *accessToken != "":
			newClient = func(ctx context.Context) (gcs.GCSClient, error) {
				return gcs.NewClientFromToken(ctx, *accessToken)
			}
		}
		c, err := newClient(ctx)
		if err != nil {
			log.Fatalf("Failed to create storage client: %v", err)
		}
		defer c.Close()
		client = c
	}

	cache, _, err := bootstrap.Build(ctx, cfg, client)
	if err != nil {
		log.Fatalf("Failed to load sources: %v", err)
	}
	cache.Logf = log.Printf
	if *maxPairCount > 0 {
		cache.SetMaxPairCount(*maxPairCount)
	}
	if *registerAll {
		if err := registerPaths(ctx, cfg, cache); err != nil {
			log.Fatalf("Failed to register mapping paths: %v", err)
		}
	}

	router := gin.Default()
	api.NewServer(cache, cfg).Export(router)

	address := fmt.Sprintf(":%d", *port)
	log.Printf("Serving %d mapping paths on %s", len(cfg.Paths), address)
	if *secure {
		if err := http.ListenAndServeTLS(address, *httpsCert, *httpsKey, router); err != nil {
			log.Fatalf("HTTPS server returned an error: %v", err)
		}
	} else {
		if err := http.ListenAndServe(address, router); err != nil {
			log.Fatalf("HTTP server returned an error: %v", err)
		}
	}
}

func hasStorageSources(cfg *config.Config) bool {
	for _, src := range cfg.Sources {
		if src.IsGCS() {
			return true
		}
	}
	return false
}
