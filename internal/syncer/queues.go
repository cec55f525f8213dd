// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package syncer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/WRadoslaw/youtube-synch/internal/logging"
)

// Stage topics. Messages carry only the video primary key; every consumer
// re-reads the authoritative record before acting, so a stale message is a
// no-op rather than a wrong transition.
const (
	TopicDownload = "videos.download"
	TopicCreate   = "videos.create"
	TopicUpload   = "videos.upload"
)

// Queues is the bounded in-process fabric between pipeline stages.
type Queues struct {
	pubsub *gochannel.GoChannel
}

// NewQueues builds the fabric with the given per-topic buffer. Publish
// blocks once a stage falls that far behind, which is the backpressure the
// pipeline relies on.
func NewQueues(buffer int64) *Queues {
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            buffer,
		BlockPublishUntilSubscriberAck: false,
	}, newWatermillLogger())
	return &Queues{pubsub: ps}
}

// Publish enqueues one video key on the topic.
func (q *Queues) Publish(topic, channelID, videoID string) error {
	msg := message.NewMessage(uuid.NewString(), []byte(videoKey(channelID, videoID)))
	return q.pubsub.Publish(topic, msg)
}

// Subscribe opens the consumer channel for a topic.
func (q *Queues) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return q.pubsub.Subscribe(ctx, topic)
}

// Close stops delivery; pending messages are dropped. Safe because every
// message is reconstructible from the state index.
func (q *Queues) Close() error {
	return q.pubsub.Close()
}

func videoKey(channelID, videoID string) string {
	return channelID + "/" + videoID
}

// splitVideoKey parses a queue payload back into its key components.
func splitVideoKey(payload []byte) (channelID, videoID string, err error) {
	parts := strings.SplitN(string(payload), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed video key %q", payload)
	}
	return parts[0], parts[1], nil
}

// watermillLogger routes watermill's internal logging into zerolog.
type watermillLogger struct {
	log zerolog.Logger
}

func newWatermillLogger() watermill.LoggerAdapter {
	return watermillLogger{log: logging.With().Str("component", "queues").Logger()}
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.log.Error().Err(err), fields).Msg(msg)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.log.Debug(), fields).Msg(msg)
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.log.Debug(), fields).Msg(msg)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.log.Trace(), fields).Msg(msg)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := l.log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return watermillLogger{log: ctx.Logger()}
}

func (l watermillLogger) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}
