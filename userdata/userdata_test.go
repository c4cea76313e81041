package userdata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/playstate"
	"github.com/unkn0wn-root/playstate/codec"
)

var u1 = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func openStore(t *testing.T, path string) Store {
	t.Helper()
	s, err := New(playstate.Options[*ItemData]{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestSaveGetAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "userdata_v2.db")
	s := openStore(t, path)

	require.NoError(t, s.Save(ctx, u1, "movie-42", &ItemData{PlaybackPositionTicks: 1200, Played: false}))

	got, err := s.Get(ctx, u1, "movie-42")
	require.NoError(t, err)
	require.Equal(t, int64(1200), got.PlaybackPositionTicks)
	require.False(t, got.Played)

	// never written
	empty, err := s.Get(ctx, u1, "movie-43")
	require.NoError(t, err)
	require.Equal(t, &ItemData{}, empty)

	s.Shutdown(ctx)
	_, err = s.Get(ctx, u1, "movie-42")
	require.ErrorIs(t, err, playstate.ErrClosed)

	s = openStore(t, path)
	defer s.Shutdown(ctx)
	got, err = s.Get(ctx, u1, "movie-42")
	require.NoError(t, err)
	require.Equal(t, int64(1200), got.PlaybackPositionTicks)
}

func TestUpdateMarksPlayed(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "userdata_v2.db"))
	defer s.Shutdown(ctx)

	require.NoError(t, s.Save(ctx, u1, "movie-42", &ItemData{PlaybackPositionTicks: 1200}))
	before, err := s.Get(ctx, u1, "movie-42")
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	next, err := Update(ctx, s, u1, "movie-42", func(d *ItemData) { d.MarkPlayed(at) })
	require.NoError(t, err)
	require.True(t, next.Played)
	require.Equal(t, 1, next.PlayCount)
	require.Zero(t, next.PlaybackPositionTicks)

	// the previously served record is untouched
	require.False(t, before.Played)
	require.Equal(t, int64(1200), before.PlaybackPositionTicks)

	got, err := s.Get(ctx, u1, "movie-42")
	require.NoError(t, err)
	require.Equal(t, next, got)
	require.True(t, got.LastPlayedDate.Equal(at))
}

func TestLegacyJSONRowDecodes(t *testing.T) {
	raw := []byte(`{"Rating":7.5,"PlaybackPositionTicks":42,"PlayCount":3,"IsFavorite":true,"Likes":null,"LastPlayedDate":"2013-05-01T10:00:00Z","Played":true}`)
	d, err := codec.JSON[*ItemData]{}.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, 7.5, *d.Rating)
	require.Equal(t, 3, d.PlayCount)
	require.True(t, d.IsFavorite)
	require.Nil(t, d.Likes)
	require.True(t, d.Played)
}

func TestCloneIsDeep(t *testing.T) {
	r, l := 4.0, true
	now := time.Now()
	d := &ItemData{Rating: &r, Likes: &l, LastPlayedDate: &now}
	cp := d.Clone()
	*cp.Rating = 1
	*cp.Likes = false
	require.Equal(t, 4.0, *d.Rating)
	require.True(t, *d.Likes)
	require.Equal(t, &ItemData{}, (*ItemData)(nil).Clone())
}
