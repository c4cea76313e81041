// Package userdata is the playback-state record stored per user and item:
// position, play count, rating and favorite flags.
package userdata

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/playstate"
	c "github.com/unkn0wn-root/playstate/codec"
)

// ItemData is one user's state for one item. JSON field names match the rows
// the media server has always written.
type ItemData struct {
	Rating                *float64   `json:"Rating,omitempty"`
	PlaybackPositionTicks int64      `json:"PlaybackPositionTicks"`
	PlayCount             int        `json:"PlayCount"`
	IsFavorite            bool       `json:"IsFavorite"`
	Likes                 *bool      `json:"Likes,omitempty"`
	LastPlayedDate        *time.Time `json:"LastPlayedDate,omitempty"`
	Played                bool       `json:"Played"`
}

// Store is a playstate.Store of *ItemData.
type Store = playstate.Store[*ItemData]

// New builds a Store of *ItemData. A nil Codec defaults to JSON and a nil
// NewRecord to an empty ItemData, so a miss never yields a nil record.
func New(opts playstate.Options[*ItemData]) (Store, error) {
	if opts.Codec == nil {
		opts.Codec = c.JSON[*ItemData]{}
	}
	if opts.NewRecord == nil {
		opts.NewRecord = func() *ItemData { return &ItemData{} }
	}
	return playstate.New(opts)
}

// Update reads the record for (userID, item), applies fn to a copy and saves
// the result. fn always receives a non-nil record.
//
// Update does not lock across the read and the save: two concurrent Updates of
// one key may both read the same state and the later save wins.
func Update(ctx context.Context, s Store, userID uuid.UUID, item string, fn func(*ItemData)) (*ItemData, error) {
	cur, err := s.Get(ctx, userID, item)
	if err != nil {
		return nil, err
	}
	next := cur.Clone()
	fn(next)
	if err := s.Save(ctx, userID, item, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Clone returns a deep copy. Records served by a Store are shared with its
// cache and must not be modified in place.
func (d *ItemData) Clone() *ItemData {
	if d == nil {
		return &ItemData{}
	}
	out := *d
	if d.Rating != nil {
		r := *d.Rating
		out.Rating = &r
	}
	if d.Likes != nil {
		l := *d.Likes
		out.Likes = &l
	}
	if d.LastPlayedDate != nil {
		t := *d.LastPlayedDate
		out.LastPlayedDate = &t
	}
	return &out
}

// MarkPlayed records a completed playback at t.
func (d *ItemData) MarkPlayed(t time.Time) {
	d.Played = true
	d.PlayCount++
	d.PlaybackPositionTicks = 0
	t = t.UTC()
	d.LastPlayedDate = &t
}

// MarkUnplayed clears the played state and the resume position.
func (d *ItemData) MarkUnplayed() {
	d.Played = false
	d.PlaybackPositionTicks = 0
}
