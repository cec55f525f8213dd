// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

// Package storagenode uploads assets to the storage fleet and ranks the
// candidate buckets a bag is served by.
package storagenode

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/WRadoslaw/youtube-synch/internal/indexer"
	"github.com/WRadoslaw/youtube-synch/internal/metrics"
	"github.com/WRadoslaw/youtube-synch/internal/model"
)

// Latencies is the shared probe table: bucket endpoint to last measured
// response time. The orchestrator's probe writes it; ranking reads it as the
// tertiary sort key.
type Latencies struct {
	mu         sync.RWMutex
	byEndpoint map[string]time.Duration
}

func NewLatencies() *Latencies {
	return &Latencies{byEndpoint: make(map[string]time.Duration)}
}

func (l *Latencies) Set(endpoint string, d time.Duration) {
	l.mu.Lock()
	l.byEndpoint[endpoint] = d
	l.mu.Unlock()
}

// Get returns the measured latency, or a large sentinel for unprobed or
// unreachable endpoints so they rank last.
func (l *Latencies) Get(endpoint string) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if d, ok := l.byEndpoint[endpoint]; ok {
		return d
	}
	return time.Hour
}

// Touch registers an endpoint for probing without overwriting an existing
// measurement.
func (l *Latencies) Touch(endpoint string) {
	l.mu.Lock()
	if _, ok := l.byEndpoint[endpoint]; !ok {
		l.byEndpoint[endpoint] = time.Hour
	}
	l.mu.Unlock()
}

// Known lists every endpoint seen so far, for the periodic probe.
func (l *Latencies) Known() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.byEndpoint))
	for e := range l.byEndpoint {
		out = append(out, e)
	}
	return out
}

// Rank orders candidate buckets best-first: free byte capacity descending,
// free object count descending, probed latency ascending. Buckets not
// accepting new bags are excluded.
func Rank(buckets []indexer.StorageBucket, lat *Latencies) []indexer.StorageBucket {
	ranked := make([]indexer.StorageBucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Accepting {
			ranked = append(ranked, b)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FreeSize != ranked[j].FreeSize {
			return ranked[i].FreeSize > ranked[j].FreeSize
		}
		if ranked[i].FreeObjects != ranked[j].FreeObjects {
			return ranked[i].FreeObjects > ranked[j].FreeObjects
		}
		return lat.Get(ranked[i].Endpoint) < lat.Get(ranked[j].Endpoint)
	})
	return ranked
}

// Client talks to individual storage nodes under <endpoint>/api/v1.
type Client struct {
	http  *http.Client
	probe *http.Client
}

func NewClient() *Client {
	return &Client{
		// Uploads are bounded by ctx, not a wall-clock timeout; media files
		// can legitimately take long on slow links.
		http:  &http.Client{},
		probe: &http.Client{Timeout: 10 * time.Second},
	}
}

// UploadFile streams one asset to a storage node as multipart form data.
// Any non-2xx response is an error; callers fail over to the next bucket.
func (c *Client) UploadFile(ctx context.Context, endpoint, bagID, dataObjectID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	u := fmt.Sprintf("%s/api/v1/files?%s", strings.TrimRight(endpoint, "/"), url.Values{
		"dataObjectId": {dataObjectID},
		"bagId":        {bagID},
	}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return model.WrapError(model.ErrNoActiveStorageProvider, "upload transport", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.NewError(model.ErrNoActiveStorageProvider,
			fmt.Sprintf("upload to %s rejected: %d %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body))))
	}
	return nil
}

// ProbeResponseTime measures one node's response time against its version
// endpoint and records it in the shared table and metrics.
func (c *Client) ProbeResponseTime(ctx context.Context, endpoint string, lat *Latencies) (time.Duration, error) {
	u := strings.TrimRight(endpoint, "/") + "/api/v1/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := c.probe.Do(req)
	if err != nil {
		lat.Set(endpoint, time.Hour)
		return 0, model.WrapError(model.ErrNoActiveStorageProvider, "probe", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	d := time.Since(start)
	if resp.StatusCode != http.StatusOK {
		// A responding-but-unhealthy node still ranks behind healthy ones.
		d = time.Hour
	}
	lat.Set(endpoint, d)
	metrics.StorageProbeLatency.WithLabelValues(endpoint).Set(d.Seconds())
	return d, nil
}
