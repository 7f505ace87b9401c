package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Endpoint is one of the upstream resources the proxy may reach.
type Endpoint string

const (
	EndpointVideos        Endpoint = "videos"
	EndpointChannels      Endpoint = "channels"
	EndpointPlaylists     Endpoint = "playlists"
	EndpointPlaylistItems Endpoint = "playlistItems"
	EndpointSearch        Endpoint = "search"
)

const (
	// CredentialParam carries the upstream API key. It never reaches the
	// cache key and callers cannot supply it upstream.
	CredentialParam = "key"
	// PartitionParam is the synthetic per-tenant parameter. It is never
	// forwarded upstream.
	PartitionParam = "handle"
	// PartitionHeader is the header form of PartitionParam.
	PartitionHeader = "X-YouTube-Handle"
)

var allowedEndpoints = map[Endpoint]struct{}{
	EndpointVideos:        {},
	EndpointChannels:      {},
	EndpointPlaylists:     {},
	EndpointPlaylistItems: {},
	EndpointSearch:        {},
}

// ParseEndpoint checks name against the allow-list.
func ParseEndpoint(name string) (Endpoint, error) {
	e := Endpoint(name)
	if _, ok := allowedEndpoints[e]; !ok {
		return "", fmt.Errorf("%w: %q", ErrForbiddenEndpoint, name)
	}
	return e, nil
}

// KeyFor builds the cache key for a request:
//
//	<endpoint>?<name=value&...>::handle=<partition>
//
// Parameters are sorted by name (values keep request order) and the
// credential is dropped, so reordered requests share a key while different
// partitions never do.
func KeyFor(endpoint Endpoint, params url.Values, partition string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		if name == CredentialParam {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		for _, v := range params[name] {
			parts = append(parts, name+"="+v)
		}
	}

	var b strings.Builder
	b.WriteString(string(endpoint))
	b.WriteByte('?')
	b.WriteString(strings.Join(parts, "&"))
	b.WriteString("::handle=")
	b.WriteString(partition)
	return b.String()
}

// ForwardParams copies the parameters that may be sent upstream, dropping
// the partition token and any caller-supplied credential.
func ForwardParams(params url.Values) url.Values {
	out := make(url.Values, len(params))
	for name, values := range params {
		if name == PartitionParam || name == CredentialParam {
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}
