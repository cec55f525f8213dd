// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package indexer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WRadoslaw/youtube-synch/internal/model"
)

func gqlServer(t *testing.T, respond func(query string, vars map[string]any) string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fmt.Fprint(w, respond(req.Query, req.Variables))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestChannelByID(t *testing.T) {
	c := gqlServer(t, func(query string, vars map[string]any) string {
		assert.Equal(t, "7", vars["id"])
		return `{"data":{"channelByUniqueInput":{"id":"7","title":"Creator","totalVideosCreated":3}}}`
	})

	ch, err := c.ChannelByID(context.Background(), "7")
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, "Creator", ch.Title)
	assert.Equal(t, int64(3), ch.TotalVideosCreated)
}

func TestChannelByIDAbsentIsNil(t *testing.T) {
	c := gqlServer(t, func(string, map[string]any) string {
		return `{"data":{"channelByUniqueInput":null}}`
	})

	ch, err := c.ChannelByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, ch)
}

func TestVideoByIDFlattensChannel(t *testing.T) {
	c := gqlServer(t, func(string, map[string]any) string {
		return `{"data":{"videoByUniqueInput":{"id":"42","title":"vid","channel":{"id":"7"}}}}`
	})

	v, err := c.VideoByID(context.Background(), "42")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "7", v.ChannelID)
}

func TestGraphQLErrorsMapToNotConnected(t *testing.T) {
	c := gqlServer(t, func(string, map[string]any) string {
		return `{"errors":[{"message":"resolver blew up"}]}`
	})

	_, err := c.ChannelByID(context.Background(), "7")
	assert.True(t, model.IsKind(err, model.ErrNotConnected), "got %v", err)
}

func TestTransportFaultMapsToNotConnected(t *testing.T) {
	c := NewClient("http://127.0.0.1:1/graphql")
	_, err := c.HeadBlock(context.Background())
	assert.True(t, model.IsKind(err, model.ErrNotConnected), "got %v", err)
}

func TestStorageBucketsForBagFiltersInactive(t *testing.T) {
	c := gqlServer(t, func(query string, vars map[string]any) string {
		assert.Equal(t, "dynamic:channel:7", vars["bag"])
		return `{"data":{"storageBuckets":[
			{"id":"1","acceptingNewBags":true,
			 "dataObjectsSize":"100","dataObjectsSizeLimit":"1000",
			 "dataObjectsCount":"5","dataObjectCountLimit":"50",
			 "operatorStatus":{"__typename":"StorageBucketOperatorStatusActive"},
			 "operatorMetadata":{"nodeEndpoint":"https://node-1.example"}},
			{"id":"2","acceptingNewBags":true,
			 "dataObjectsSize":"0","dataObjectsSizeLimit":"1000",
			 "dataObjectsCount":"0","dataObjectCountLimit":"50",
			 "operatorStatus":{"__typename":"StorageBucketOperatorStatusMissing"},
			 "operatorMetadata":{"nodeEndpoint":"https://node-2.example"}},
			{"id":"3","acceptingNewBags":true,
			 "dataObjectsSize":"0","dataObjectsSizeLimit":"1000",
			 "dataObjectsCount":"0","dataObjectCountLimit":"50",
			 "operatorStatus":{"__typename":"StorageBucketOperatorStatusActive"},
			 "operatorMetadata":null}
		]}}`
	})

	buckets, err := c.StorageBucketsForBag(context.Background(), "dynamic:channel:7")
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "1", buckets[0].ID)
	assert.Equal(t, "https://node-1.example", buckets[0].Endpoint)
	assert.Equal(t, int64(900), buckets[0].FreeSize)
	assert.Equal(t, int64(45), buckets[0].FreeObjects)
	assert.True(t, buckets[0].Accepting)
}

func TestEnsureFresh(t *testing.T) {
	c := gqlServer(t, func(string, map[string]any) string {
		return `{"data":{"squidStatus":{"height":500}}}`
	})

	require.NoError(t, c.EnsureFresh(context.Background(), 500))

	err := c.EnsureFresh(context.Background(), 501)
	assert.True(t, model.IsKind(err, model.ErrOutdatedState), "got %v", err)
}
