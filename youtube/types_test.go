package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePage_Channel(t *testing.T) {
	body := `{
		"items": [{
			"id": "UC123",
			"snippet": {
				"title": "Creator",
				"customUrl": "@creator",
				"thumbnails": {"default": {"url": "d.jpg"}, "high": {"url": "h.jpg"}}
			},
			"statistics": {"subscriberCount": "1200", "viewCount": 99, "hiddenSubscriberCount": false},
			"contentDetails": {"relatedPlaylists": {"uploads": "UU123"}}
		}],
		"pageInfo": {"totalResults": 1, "resultsPerPage": 5}
	}`

	page, err := DecodePage[Channel]([]byte(body))
	require.NoError(t, err)

	ch, ok := page.First()
	require.True(t, ok)
	assert.Equal(t, "UC123", ch.ID)
	assert.Equal(t, "Creator", ch.Title())
	assert.Equal(t, "UU123", ch.UploadsPlaylistID())
	assert.Equal(t, FlexInt(1200), ch.Statistics.SubscriberCount)
	assert.Equal(t, FlexInt(99), ch.Statistics.ViewCount)
	assert.Equal(t, "h.jpg", ch.Snippet.Thumbnails.Best())
	assert.Equal(t, 1, page.PageInfo.TotalResults)
}

func TestDecodePage_MissingFieldsDefault(t *testing.T) {
	page, err := DecodePage[Channel]([]byte(`{"items":[{}]}`))
	require.NoError(t, err)

	ch, ok := page.First()
	require.True(t, ok)
	assert.Equal(t, "", ch.Title())
	assert.Equal(t, "", ch.UploadsPlaylistID())

	var th *Thumbnails
	assert.Equal(t, "", th.Best())

	empty, err := DecodePage[Video](nil)
	require.NoError(t, err)
	_, ok = empty.First()
	assert.False(t, ok)

	v := Video{}
	assert.Equal(t, "", v.Title())
	assert.Equal(t, int64(0), v.ViewCount())

	p := Playlist{}
	assert.Equal(t, "", p.Title())
	assert.Equal(t, 0, p.ItemCount())
}

func TestDecodePage_InvalidJSON(t *testing.T) {
	_, err := DecodePage[Video]([]byte(`<html>`))
	require.Error(t, err)
}

func TestFlexInt(t *testing.T) {
	page, err := DecodePage[Video]([]byte(`{"items":[
		{"id":"a","statistics":{"viewCount":"42"}},
		{"id":"b","statistics":{"viewCount":7}},
		{"id":"c","statistics":{"viewCount":"n/a"}},
		{"id":"d","statistics":{"viewCount":null}}
	]}`))
	require.NoError(t, err)
	require.Len(t, page.Items, 4)

	assert.Equal(t, int64(42), page.Items[0].ViewCount())
	assert.Equal(t, int64(7), page.Items[1].ViewCount())
	assert.Equal(t, int64(0), page.Items[2].ViewCount())
	assert.Equal(t, int64(0), page.Items[3].ViewCount())
}

func TestPlaylistItem_VideoID(t *testing.T) {
	page, err := DecodePage[PlaylistItem]([]byte(`{"items":[
		{"contentDetails":{"videoId":"fromDetails"},"snippet":{"resourceId":{"videoId":"fromSnippet"}}},
		{"snippet":{"resourceId":{"videoId":"fromSnippet"}}},
		{}
	]}`))
	require.NoError(t, err)

	assert.Equal(t, "fromDetails", page.Items[0].VideoID())
	assert.Equal(t, "fromSnippet", page.Items[1].VideoID())
	assert.Equal(t, "", page.Items[2].VideoID())
}

func TestSearchID_ObjectOrString(t *testing.T) {
	page, err := DecodePage[SearchResult]([]byte(`{"items":[
		{"id":{"kind":"youtube#video","videoId":"vid1"},"snippet":{"title":"Live now"}},
		{"id":"vid2"},
		{"id":null},
		{"id":42}
	]}`))
	require.NoError(t, err)
	require.Len(t, page.Items, 4)

	assert.Equal(t, "vid1", page.Items[0].ID.VideoID)
	assert.Equal(t, "youtube#video", page.Items[0].ID.Kind)
	assert.Equal(t, "Live now", page.Items[0].Snippet["title"])
	assert.Equal(t, "vid2", page.Items[1].ID.VideoID)
	assert.Equal(t, SearchID{}, page.Items[2].ID)
	assert.Equal(t, SearchID{}, page.Items[3].ID)
}
