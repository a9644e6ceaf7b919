// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/tomtom215/shortforge/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence contract consumed by the decision core. It
// supplies CRUD on channels, video records, outcomes, variant arms, topic
// documents, predictor state, and advisories, with range queries by channel
// and time.
type Store interface {
	SaveChannel(ctx context.Context, ch *models.Channel) error
	GetChannel(ctx context.Context, id string) (*models.Channel, error)
	ListChannels(ctx context.Context) ([]*models.Channel, error)

	SaveVideoRecord(ctx context.Context, rec *models.VideoRecord) error
	GetVideoRecord(ctx context.Context, id string) (*models.VideoRecord, error)

	// ListVideoRecords returns a channel's records in upload-time order,
	// oldest first, restricted to uploads at or after since (zero = all).
	// limit 0 means no limit.
	ListVideoRecords(ctx context.Context, channelID string, since time.Time, limit int) ([]*models.VideoRecord, error)

	SaveOutcome(ctx context.Context, out *models.Outcome) error
	ListOutcomes(ctx context.Context, videoID string) ([]*models.Outcome, error)

	SaveArm(ctx context.Context, arm *models.VariantArm) error
	ListArms(ctx context.Context, channelID string) ([]*models.VariantArm, error)

	SaveTopicDocument(ctx context.Context, doc *models.TopicDocument) error
	GetTopicDocument(ctx context.Context, channelID, topic string) (*models.TopicDocument, error)
	ListTopicDocuments(ctx context.Context, channelID string) ([]*models.TopicDocument, error)

	SavePredictorState(ctx context.Context, st *models.PredictorState) error
	GetPredictorState(ctx context.Context, channelID string) (*models.PredictorState, error)

	SaveAdvisory(ctx context.Context, adv *models.Advisory) error
	ListAdvisories(ctx context.Context, channelID string, limit int) ([]*models.Advisory, error)

	Close() error
}

// Key prefixes. Within a prefix, keys sort so that badger's ordered
// iteration yields channel- and time-ordered ranges without a secondary
// index.
const (
	prefixChannel   = "channel/"
	prefixVideo     = "video/"
	prefixVideoIdx  = "video_by_channel/"
	prefixOutcome   = "outcome/"
	prefixArm       = "arm/"
	prefixTopic     = "topic/"
	prefixPredictor = "predictor/"
	prefixAdvisory  = "advisory/"
)

func channelKey(id string) []byte {
	return []byte(prefixChannel + id)
}

func videoKey(id string) []byte {
	return []byte(prefixVideo + id)
}

// videoIdxKey orders a channel's videos by upload time. Nanosecond
// timestamps are zero-padded so lexicographic order equals time order.
func videoIdxKey(channelID string, uploadedAt time.Time, videoID string) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d/%s", prefixVideoIdx, channelID, uploadedAt.UnixNano(), videoID))
}

func videoIdxPrefix(channelID string) []byte {
	return []byte(prefixVideoIdx + channelID + "/")
}

func outcomeKey(videoID string, offset models.CheckpointOffset) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", prefixOutcome, videoID, offset.Duration().Nanoseconds()))
}

func outcomePrefix(videoID string) []byte {
	return []byte(prefixOutcome + videoID + "/")
}

func armKey(channelID, armID string) []byte {
	return []byte(prefixArm + channelID + "/" + armID)
}

func armPrefix(channelID string) []byte {
	return []byte(prefixArm + channelID + "/")
}

// topicKey escapes the topic string so free-text topics cannot collide
// with the key separator.
func topicKey(channelID, topic string) []byte {
	return []byte(prefixTopic + channelID + "/" + url.PathEscape(topic))
}

func topicPrefix(channelID string) []byte {
	return []byte(prefixTopic + channelID + "/")
}

func predictorKey(channelID string) []byte {
	return []byte(prefixPredictor + channelID)
}

func advisoryKey(channelID string, createdAt time.Time, videoID string) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d/%s", prefixAdvisory, channelID, createdAt.UnixNano(), videoID))
}

func advisoryPrefix(channelID string) []byte {
	return []byte(prefixAdvisory + channelID + "/")
}
