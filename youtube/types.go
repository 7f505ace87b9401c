package youtube

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Response bodies are partial (the caller picks `part`), so every
// nested object is a pointer and every accessor tolerates nil.

// Page is the generic list envelope.
type Page[T any] struct {
	Items         []T       `json:"items"`
	NextPageToken string    `json:"nextPageToken"`
	PageInfo      *PageInfo `json:"pageInfo"`
}

type PageInfo struct {
	TotalResults   int `json:"totalResults"`
	ResultsPerPage int `json:"resultsPerPage"`
}

// First returns the first item, or the zero value and false.
func (p Page[T]) First() (T, bool) {
	var zero T
	if len(p.Items) == 0 {
		return zero, false
	}
	return p.Items[0], true
}

// DecodePage decodes a list response. An empty body yields an empty page.
func DecodePage[T any](body []byte) (Page[T], error) {
	var p Page[T]
	if len(bytes.TrimSpace(body)) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return Page[T]{}, err
	}
	return p, nil
}

// FlexInt accepts counts sent as JSON numbers or numeric strings. Anything
// else decodes to 0 instead of failing the whole document.
type FlexInt int64

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = FlexInt(v)
	return nil
}

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Thumbnails struct {
	Default *Thumbnail `json:"default"`
	Medium  *Thumbnail `json:"medium"`
	High    *Thumbnail `json:"high"`
}

// Best returns the largest available thumbnail URL.
func (t *Thumbnails) Best() string {
	if t == nil {
		return ""
	}
	for _, th := range []*Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return ""
}

// Channel

type Channel struct {
	ID               string                 `json:"id"`
	Snippet          *ChannelSnippet        `json:"snippet"`
	Statistics       *ChannelStatistics     `json:"statistics"`
	BrandingSettings *BrandingSettings      `json:"brandingSettings"`
	ContentDetails   *ChannelContentDetails `json:"contentDetails"`
}

type ChannelSnippet struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	CustomURL   string      `json:"customUrl"`
	PublishedAt string      `json:"publishedAt"`
	Country     string      `json:"country"`
	Thumbnails  *Thumbnails `json:"thumbnails"`
	Localized   *struct {
		CustomURL string `json:"customUrl"`
	} `json:"localized"`
}

type ChannelStatistics struct {
	SubscriberCount       FlexInt `json:"subscriberCount"`
	ViewCount             FlexInt `json:"viewCount"`
	VideoCount            FlexInt `json:"videoCount"`
	HiddenSubscriberCount bool    `json:"hiddenSubscriberCount"`
}

type BrandingSettings struct {
	Image *struct {
		BannerExternalURL string `json:"bannerExternalUrl"`
	} `json:"image"`
	Channel *struct {
		Country              string   `json:"country"`
		Keywords             string   `json:"keywords"`
		FeaturedChannelsURLs []string `json:"featuredChannelsUrls"`
	} `json:"channel"`
}

type ChannelContentDetails struct {
	RelatedPlaylists *struct {
		Uploads string `json:"uploads"`
	} `json:"relatedPlaylists"`
}

func (c Channel) Title() string {
	if c.Snippet == nil {
		return ""
	}
	return c.Snippet.Title
}

// UploadsPlaylistID is the playlist holding every public upload.
func (c Channel) UploadsPlaylistID() string {
	if c.ContentDetails == nil || c.ContentDetails.RelatedPlaylists == nil {
		return ""
	}
	return c.ContentDetails.RelatedPlaylists.Uploads
}

// Playlist

type Playlist struct {
	ID      string `json:"id"`
	Snippet *struct {
		Title      string      `json:"title"`
		Thumbnails *Thumbnails `json:"thumbnails"`
	} `json:"snippet"`
	ContentDetails *struct {
		ItemCount int `json:"itemCount"`
	} `json:"contentDetails"`
}

func (p Playlist) Title() string {
	if p.Snippet == nil {
		return ""
	}
	return p.Snippet.Title
}

func (p Playlist) ItemCount() int {
	if p.ContentDetails == nil {
		return 0
	}
	return p.ContentDetails.ItemCount
}

// PlaylistItem

type PlaylistItem struct {
	Snippet *struct {
		Title      string `json:"title"`
		ResourceID *struct {
			VideoID string `json:"videoId"`
		} `json:"resourceId"`
	} `json:"snippet"`
	ContentDetails *struct {
		VideoID string `json:"videoId"`
	} `json:"contentDetails"`
}

// VideoID prefers contentDetails and falls back to the snippet resource id.
func (it PlaylistItem) VideoID() string {
	if it.ContentDetails != nil && it.ContentDetails.VideoID != "" {
		return it.ContentDetails.VideoID
	}
	if it.Snippet != nil && it.Snippet.ResourceID != nil {
		return it.Snippet.ResourceID.VideoID
	}
	return ""
}

// Video

type Video struct {
	ID      string `json:"id"`
	Snippet *struct {
		Title       string      `json:"title"`
		PublishedAt string      `json:"publishedAt"`
		Thumbnails  *Thumbnails `json:"thumbnails"`
	} `json:"snippet"`
	Statistics *struct {
		ViewCount FlexInt `json:"viewCount"`
	} `json:"statistics"`
	ContentDetails *struct {
		// Duration is ISO 8601, e.g. "PT4M13S".
		Duration string `json:"duration"`
	} `json:"contentDetails"`
}

func (v Video) Title() string {
	if v.Snippet == nil {
		return ""
	}
	return v.Snippet.Title
}

func (v Video) ViewCount() int64 {
	if v.Statistics == nil {
		return 0
	}
	return int64(v.Statistics.ViewCount)
}

// Search

type SearchResult struct {
	ID      SearchID       `json:"id"`
	Snippet map[string]any `json:"snippet"`
}

// SearchID is an object ({"kind", "videoId", ...}) in API v3 responses but
// a bare string in some older payloads; both are accepted.
type SearchID struct {
	Kind       string `json:"kind"`
	VideoID    string `json:"videoId"`
	ChannelID  string `json:"channelId"`
	PlaylistID string `json:"playlistId"`
}

func (id *SearchID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		id.VideoID = s
		return nil
	}
	type plain SearchID
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return nil
	}
	*id = SearchID(p)
	return nil
}
