// Package warm pre-populates the cache from background jobs by running
// requests through the same pipeline that serves clients.
package warm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/briangreenhill/ytcache/cache"
	"github.com/briangreenhill/ytcache/internal/proxy"
	"github.com/briangreenhill/ytcache/youtube"
)

// ErrChannelNotFound is returned when a handle resolves to no channel.
var ErrChannelNotFound = errors.New("warm: channel not found")

// maxIDsPerCall is the upstream limit on ids per videos request.
const maxIDsPerCall = 50

// Resolver is satisfied by *proxy.Service.
type Resolver interface {
	Resolve(ctx context.Context, req proxy.Request) (*proxy.Result, error)
}

type Warmer struct {
	resolver Resolver
	log      zerolog.Logger
}

func New(r Resolver, logger zerolog.Logger) *Warmer {
	return &Warmer{resolver: r, log: logger.With().Str("component", "warm").Logger()}
}

// WarmRequest resolves a single request and reports its provenance.
func (w *Warmer) WarmRequest(ctx context.Context, endpoint string, params url.Values, handle string) (string, error) {
	res, err := w.resolver.Resolve(ctx, proxy.Request{Endpoint: endpoint, Params: params, Handle: handle})
	if err != nil {
		return "", err
	}
	return res.Provenance, nil
}

// Bundle is everything a channel page needs.
type Bundle struct {
	Channel   youtube.Channel
	ChannelID string
	UploadsID string
	Playlists youtube.Page[youtube.Playlist]
	Uploads   youtube.Page[youtube.PlaylistItem]
	Details   youtube.Page[youtube.Video]
	Live      youtube.Page[youtube.SearchResult]
	Upcoming  youtube.Page[youtube.SearchResult]
}

// WarmChannel loads the channel bundle for handle, leaving every leg in the
// cache. Requests are unpartitioned so they match what browsers send.
//
// Search legs are expensive and optional; their failures yield empty pages.
func (w *Warmer) WarmChannel(ctx context.Context, handle string) (*Bundle, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, fmt.Errorf("%w: empty handle", ErrChannelNotFound)
	}
	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}

	channels, err := fetchPage[youtube.Channel](ctx, w.resolver, cache.EndpointChannels, url.Values{
		"part":      {"snippet,contentDetails,statistics,brandingSettings"},
		"forHandle": {handle},
	})
	if err != nil {
		return nil, err
	}
	ch, ok := channels.First()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, handle)
	}
	b := &Bundle{Channel: ch, ChannelID: ch.ID, UploadsID: ch.UploadsPlaylistID()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := fetchPage[youtube.Playlist](gctx, w.resolver, cache.EndpointPlaylists, url.Values{
			"part":       {"snippet,contentDetails"},
			"channelId":  {b.ChannelID},
			"maxResults": {strconv.Itoa(maxIDsPerCall)},
		})
		b.Playlists = p
		return err
	})
	if b.UploadsID != "" {
		g.Go(func() error {
			p, err := fetchPage[youtube.PlaylistItem](gctx, w.resolver, cache.EndpointPlaylistItems, url.Values{
				"part":       {"snippet,contentDetails"},
				"playlistId": {b.UploadsID},
				"maxResults": {strconv.Itoa(maxIDsPerCall)},
			})
			b.Uploads = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var ids []string
	for _, it := range b.Uploads.Items {
		if id := it.VideoID(); id != "" {
			ids = append(ids, id)
		}
	}
	for _, chunk := range chunks(ids, maxIDsPerCall) {
		p, err := fetchPage[youtube.Video](ctx, w.resolver, cache.EndpointVideos, url.Values{
			"part": {"snippet,contentDetails,statistics"},
			"id":   {strings.Join(chunk, ",")},
		})
		if err != nil {
			return nil, err
		}
		b.Details.Items = append(b.Details.Items, p.Items...)
	}

	b.Live = w.searchEvents(ctx, b.ChannelID, "live")
	b.Upcoming = w.searchEvents(ctx, b.ChannelID, "upcoming")

	w.log.Info().
		Str("handle", handle).
		Str("channel_id", b.ChannelID).
		Int("uploads", len(b.Uploads.Items)).
		Int("videos", len(b.Details.Items)).
		Msg("channel warmed")
	return b, nil
}

func (w *Warmer) searchEvents(ctx context.Context, channelID, eventType string) youtube.Page[youtube.SearchResult] {
	p, err := fetchPage[youtube.SearchResult](ctx, w.resolver, cache.EndpointSearch, url.Values{
		"part":       {"snippet"},
		"channelId":  {channelID},
		"type":       {"video"},
		"eventType":  {eventType},
		"order":      {"date"},
		"maxResults": {"10"},
	})
	if err != nil {
		w.log.Warn().Err(err).Str("channel_id", channelID).Str("event_type", eventType).Msg("search leg failed")
		return youtube.Page[youtube.SearchResult]{}
	}
	return p
}

func fetchPage[T any](ctx context.Context, r Resolver, endpoint cache.Endpoint, params url.Values) (youtube.Page[T], error) {
	res, err := r.Resolve(ctx, proxy.Request{Endpoint: string(endpoint), Params: params})
	if err != nil {
		return youtube.Page[T]{}, err
	}
	p, err := youtube.DecodePage[T](res.Body)
	if err != nil {
		return youtube.Page[T]{}, fmt.Errorf("warm: decode %s: %w", endpoint, err)
	}
	return p, nil
}

func chunks(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > 0 {
		n := min(size, len(ids))
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}
