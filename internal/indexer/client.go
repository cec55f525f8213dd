// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

// Package indexer queries the Joystream query node over GraphQL. Every query
// has an explicit record type; null and absent are only distinguished at the
// wire boundary.
package indexer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/WRadoslaw/youtube-synch/internal/model"
)

// pageSize is the query node's maximum page; larger requests are truncated
// server-side, so paginate in steps of exactly this.
const pageSize = 1000

// Channel is the query node's view of an on-chain channel.
type Channel struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	TotalVideosCreated int64  `json:"totalVideosCreated"`
}

// Video is the query node's view of an on-chain video.
type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ChannelID string `json:"channelId"`
}

// StorageBucket is a storage fleet node with its remaining capacity.
type StorageBucket struct {
	ID       string
	Endpoint string
	// Remaining voucher headroom, bytes and object slots.
	FreeSize    int64
	FreeObjects int64
	Accepting   bool
}

// DataObject is one asset blob tracked by the runtime.
type DataObject struct {
	ID         string `json:"id"`
	IpfsHash   string `json:"ipfsHash"`
	Size       int64  `json:"size,string"`
	IsAccepted bool   `json:"isAccepted"`
}

// Client is the GraphQL-over-HTTP query node client.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

// query posts one GraphQL document and decodes data into out. Transport
// faults surface as NotConnected.
func (c *Client) query(ctx context.Context, doc string, vars map[string]any, out any) error {
	body, err := json.Marshal(gqlRequest{Query: doc, Variables: vars})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.WrapError(model.ErrNotConnected, "query node request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.WrapError(model.ErrNotConnected, "query node response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.NewError(model.ErrNotConnected, fmt.Sprintf("query node status %d", resp.StatusCode))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []gqlError      `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return model.WrapError(model.ErrNotConnected, "query node payload", err)
	}
	if len(envelope.Errors) > 0 {
		return model.NewError(model.ErrNotConnected, envelope.Errors[0].Message)
	}
	return json.Unmarshal(envelope.Data, out)
}

// ChannelByID looks up one on-chain channel; nil when the node has no record.
func (c *Client) ChannelByID(ctx context.Context, id string) (*Channel, error) {
	const doc = `query($id: String!) {
		channelByUniqueInput(where: {id: $id}) { id title totalVideosCreated }
	}`
	var data struct {
		Channel *Channel `json:"channelByUniqueInput"`
	}
	if err := c.query(ctx, doc, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	return data.Channel, nil
}

// VideoByID looks up one on-chain video; nil when the node has no record.
func (c *Client) VideoByID(ctx context.Context, id string) (*Video, error) {
	const doc = `query($id: String!) {
		videoByUniqueInput(where: {id: $id}) { id title channel { id } }
	}`
	var data struct {
		Video *struct {
			ID      string `json:"id"`
			Title   string `json:"title"`
			Channel struct {
				ID string `json:"id"`
			} `json:"channel"`
		} `json:"videoByUniqueInput"`
	}
	if err := c.query(ctx, doc, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.Video == nil {
		return nil, nil
	}
	return &Video{ID: data.Video.ID, Title: data.Video.Title, ChannelID: data.Video.Channel.ID}, nil
}

// DataObjectByID looks up one data object; nil when the node has no record.
func (c *Client) DataObjectByID(ctx context.Context, id string) (*DataObject, error) {
	const doc = `query($id: String!) {
		storageDataObjectByUniqueInput(where: {id: $id}) { id ipfsHash size isAccepted }
	}`
	var data struct {
		Object *DataObject `json:"storageDataObjectByUniqueInput"`
	}
	if err := c.query(ctx, doc, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	return data.Object, nil
}

type bucketRecord struct {
	ID               string `json:"id"`
	AcceptingNewBags bool   `json:"acceptingNewBags"`
	DataObjectsSize  int64  `json:"dataObjectsSize,string"`
	SizeLimit        int64  `json:"dataObjectsSizeLimit,string"`
	DataObjectsCount int64  `json:"dataObjectsCount,string"`
	CountLimit       int64  `json:"dataObjectCountLimit,string"`
	OperatorStatus   struct {
		Typename string `json:"__typename"`
	} `json:"operatorStatus"`
	OperatorMetadata *struct {
		NodeEndpoint string `json:"nodeEndpoint"`
	} `json:"operatorMetadata"`
}

// StorageBucketsForBag returns the active buckets serving the given storage
// bag. Buckets without an active operator or an endpoint are dropped here so
// the uploader only ranks real candidates.
func (c *Client) StorageBucketsForBag(ctx context.Context, bagID string) ([]StorageBucket, error) {
	const doc = `query($bag: String!, $limit: Int!, $offset: Int!) {
		storageBuckets(
			where: {bags_some: {id_eq: $bag}}
			limit: $limit
			offset: $offset
		) {
			id
			acceptingNewBags
			dataObjectsSize
			dataObjectsSizeLimit
			dataObjectsCount
			dataObjectCountLimit
			operatorStatus { __typename }
			operatorMetadata { nodeEndpoint }
		}
	}`

	var buckets []StorageBucket
	for offset := 0; ; offset += pageSize {
		var data struct {
			Buckets []bucketRecord `json:"storageBuckets"`
		}
		vars := map[string]any{"bag": bagID, "limit": pageSize, "offset": offset}
		if err := c.query(ctx, doc, vars, &data); err != nil {
			return nil, err
		}
		for _, b := range data.Buckets {
			if b.OperatorStatus.Typename != "StorageBucketOperatorStatusActive" {
				continue
			}
			if b.OperatorMetadata == nil || b.OperatorMetadata.NodeEndpoint == "" {
				continue
			}
			buckets = append(buckets, StorageBucket{
				ID:          b.ID,
				Endpoint:    b.OperatorMetadata.NodeEndpoint,
				FreeSize:    b.SizeLimit - b.DataObjectsSize,
				FreeObjects: b.CountLimit - b.DataObjectsCount,
				Accepting:   b.AcceptingNewBags,
			})
		}
		if len(data.Buckets) < pageSize {
			return buckets, nil
		}
	}
}

// HeadBlock reports the processor's last complete block height.
func (c *Client) HeadBlock(ctx context.Context) (int64, error) {
	const doc = `query { squidStatus { height } }`
	var data struct {
		SquidStatus struct {
			Height int64 `json:"height"`
		} `json:"squidStatus"`
	}
	if err := c.query(ctx, doc, nil, &data); err != nil {
		return 0, err
	}
	return data.SquidStatus.Height, nil
}

// EnsureFresh fails with OutdatedState when the processor lags behind the
// given chain height. Callers that just finalized a block pass its number so
// reads do not observe a stale projection.
func (c *Client) EnsureFresh(ctx context.Context, minHeight int64) error {
	head, err := c.HeadBlock(ctx)
	if err != nil {
		return err
	}
	if head < minHeight {
		return model.NewError(model.ErrOutdatedState,
			fmt.Sprintf("processor at block %d, need %d", head, minHeight))
	}
	return nil
}
