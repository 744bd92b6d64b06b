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

// This binary queries a coordinate mapping server, authenticating with the
// application default credentials.
//
// Each argument is a region written cs/name:start-end, for example
// chromosome:GRCh38/1:1000-2000.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	scope = "https://www.googleapis.com/auth/userinfo.email"
)

var (
	server = flag.String("server", "http://localhost", "mapping server URL")
	to     = flag.String("to", "", "target coordinate system")
	mode   = flag.String("mode", "map", "query to run: map, ids or regions")
	strand = flag.Int("strand", 1, "strand of the queried regions")
	fast   = flag.Bool("fast", false, "only return results lying in a single pair")
	output = flag.String("o", "", "output filename")
	anon   = flag.Bool("anonymous", false, "do not send credentials")
)

var errMalformedRegion = errors.New("region must be written cs/name:start-end")

func main() {
	flag.Parse()

	if *to == "" {
		log.Fatalf("You must specify a target coordinate system with -to.")
	}
	switch *mode {
	case "map", "ids", "regions":
	default:
		log.Fatalf("Unknown mode %q", *mode)
	}

	w := io.Writer(os.Stdout)
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("Failed to open output file: %v", err)
		}
		defer f.Close()

		w = f
	}

	ctx := context.Background()

	// For compatibility with other tools, read the standard cURL certificate
	// authority override from the environment.
	if bundle := os.Getenv("CURL_CA_BUNDLE"); bundle != "" {
		pem, err := ioutil.ReadFile(bundle)
		if err != nil {
			log.Fatalf("Failed to read CA override file %q: %v", bundle, err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			log.Fatalf("Failed to initialize system certificate pool: %v", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			log.Fatalf("Failed to add certificates from bundle %q", bundle)
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					RootCAs: pool,
				}},
		})
		log.Printf("Using CA override bundle from %q", bundle)
	}

	client := http.DefaultClient
	if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok {
		client = c
	}
	if !*anon {
		c, err := google.DefaultClient(ctx, scope)
		if err != nil {
			log.Fatalf("Failed to create client: %v", err)
		}
		client = c
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, arg := range flag.Args() {
		target, err := queryURL(*server, *mode, arg)
		if err != nil {
			log.Fatalf("Invalid region %q: %v", arg, err)
		}
		log.Printf("Fetching %q", target)

		resp, err := client.Get(target)
		if err != nil {
			log.Fatalf("Request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			log.Fatalf("Unexpected response: %v", errorFromResponse(resp))
		}

		var result map[string]interface{}
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			log.Fatalf("Failed to decode response: %v", err)
		}
		if err := enc.Encode(result); err != nil {
			log.Fatalf("Failed to write result: %v", err)
		}
	}
}

// queryURL builds the request URL for a cs/name:start-end region.
func queryURL(base, mode, region string) (string, error) {
	slash := strings.Index(region, "/")
	colon := strings.LastIndex(region, ":")
	if slash <= 0 || colon < slash {
		return "", errMalformedRegion
	}
	cs, name, interval := region[:slash], region[slash+1:colon], region[colon+1:]
	bounds := strings.SplitN(interval, "-", 2)
	if name == "" || len(bounds) != 2 {
		return "", errMalformedRegion
	}
	for _, b := range bounds {
		if _, err := strconv.ParseInt(b, 10, 64); err != nil {
			return "", fmt.Errorf("%w: %v", errMalformedRegion, err)
		}
	}

	values := url.Values{}
	values.Set("start", bounds[0])
	values.Set("end", bounds[1])
	values.Set("to", *to)
	if mode == "map" {
		values.Set("strand", strconv.Itoa(*strand))
		if *fast {
			values.Set("fast", "true")
		}
	}
	return fmt.Sprintf("%s/%s/%s/%s?%s", strings.TrimSuffix(base, "/"), mode,
		url.PathEscape(cs), url.PathEscape(name), values.Encode()), nil
}

func errorFromResponse(resp *http.Response) error {
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusNotFound:
		v := make(map[string]string)
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			return fmt.Errorf("%s: parsing response body: %v", resp.Status, err)
		}
		if message, ok := v["message"]; ok {
			return fmt.Errorf("%s: %v", v["error"], message)
		}
	}
	return fmt.Errorf("unexpected response status: %q", resp.Status)
}
