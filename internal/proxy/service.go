// Package proxy resolves one inbound API request against the cache and the
// upstream gateway.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/briangreenhill/ytcache/cache"
	"github.com/briangreenhill/ytcache/youtube"
)

// Provenance values reported in the X-Cache header.
const (
	ProvenanceHit         = "HIT"
	ProvenanceRevalidated = "REVALIDATED"
	ProvenanceMiss        = "MISS"
	ProvenanceRefetch     = "MISS-REFETCH"
)

// Upstream is the gateway to the external API. *youtube.Client implements it.
type Upstream interface {
	Fetch(ctx context.Context, endpoint string, params url.Values, validator string) (*youtube.Response, error)
}

type Request struct {
	Endpoint string
	Params   url.Values
	// Handle partitions the cache per tenant. It never goes upstream.
	Handle string
}

type Result struct {
	Key         string
	Body        []byte
	ContentType string
	Provenance  string
}

// PassThroughError carries an upstream failure that must reach the caller
// verbatim. Provenance records whether a prior record existed.
type PassThroughError struct {
	Provenance string
	Upstream   *youtube.UpstreamError
}

func (e *PassThroughError) Error() string {
	return fmt.Sprintf("proxy: %s: %v", e.Provenance, e.Upstream)
}

func (e *PassThroughError) Unwrap() error { return e.Upstream }

type Options struct {
	Store    cache.ReadWriter
	Upstream Upstream
	Policy   cache.Policy
	// Now defaults to time.Now.
	Now func() time.Time
	// Coalesce shares one upstream call between concurrent refreshes of
	// the same key.
	Coalesce bool
	// RefreshTimeout bounds a coalesced refresh, which outlives the
	// caller that started it. Defaults to defaultRefreshTimeout.
	RefreshTimeout time.Duration
	Logger         zerolog.Logger
}

const defaultRefreshTimeout = 30 * time.Second

type Service struct {
	store    cache.ReadWriter
	upstream Upstream
	policy   cache.Policy
	now      func() time.Time
	coalesce bool
	group    singleflight.Group
	timeout  time.Duration
	log      zerolog.Logger
}

func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("proxy: store required")
	}
	if opts.Upstream == nil {
		return nil, errors.New("proxy: upstream required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.RefreshTimeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	return &Service{
		store:    opts.Store,
		upstream: opts.Upstream,
		policy:   opts.Policy,
		now:      now,
		coalesce: opts.Coalesce,
		timeout:  timeout,
		log:      opts.Logger.With().Str("component", "proxy").Logger(),
	}, nil
}

// Resolve runs normalize, lookup, classify and, when needed, refresh.
//
// Errors: cache.ErrForbiddenEndpoint (before any I/O), *cache.StoreError on
// read failure, *PassThroughError for upstream answers, anything else as-is.
// Write failures are logged and never returned.
func (s *Service) Resolve(ctx context.Context, req Request) (*Result, error) {
	endpoint, err := cache.ParseEndpoint(req.Endpoint)
	if err != nil {
		return nil, err
	}
	key := cache.KeyFor(endpoint, req.Params, req.Handle)

	rec, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if cache.Classify(rec, s.now()) == cache.Fresh {
		return &Result{
			Key:         key,
			Body:        rec.Body,
			ContentType: rec.ContentType,
			Provenance:  ProvenanceHit,
		}, nil
	}

	if !s.coalesce {
		return s.refresh(ctx, endpoint, key, req.Params, rec)
	}
	return s.sharedRefresh(ctx, endpoint, key, req.Params, rec)
}

// sharedRefresh runs one refresh per key for all concurrent callers. The
// refresh is detached from any single caller's cancellation; each caller
// stops waiting when its own ctx is done.
func (s *Service) sharedRefresh(ctx context.Context, endpoint cache.Endpoint, key string, params url.Values, prior *cache.Record) (*Result, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.refresh(rctx, endpoint, key, params, prior)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Shared {
			s.log.Debug().Str("key", key).Msg("coalesced refresh")
		}
		if r.Err != nil {
			return nil, r.Err
		}
		res := *r.Val.(*Result)
		return &res, nil
	}
}

func (s *Service) lookup(ctx context.Context, key string) (*cache.Record, error) {
	rec, err := s.store.Get(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		var se *cache.StoreError
		if !errors.As(err, &se) {
			err = &cache.StoreError{Op: "get", Key: key, Err: err}
		}
		return nil, err
	}
	return rec, nil
}

// refresh fetches from upstream, conditionally when prior holds a validator,
// and writes the outcome back. prior is never modified.
func (s *Service) refresh(ctx context.Context, endpoint cache.Endpoint, key string, params url.Values, prior *cache.Record) (*Result, error) {
	provenance := ProvenanceMiss
	validator := ""
	if prior != nil {
		provenance = ProvenanceRefetch
		validator = prior.Validator
	}

	resp, err := s.upstream.Fetch(ctx, string(endpoint), cache.ForwardParams(params), validator)
	if err != nil {
		var ue *youtube.UpstreamError
		if errors.As(err, &ue) {
			return nil, &PassThroughError{Provenance: provenance, Upstream: ue}
		}
		return nil, err
	}

	now := s.now()
	ttl := s.policy.TTLFor(endpoint)

	if resp.NotModified && prior != nil {
		etag := prior.Validator
		if resp.ETag != "" {
			etag = resp.ETag
		}
		s.write(ctx, &cache.Record{
			Key:         key,
			Body:        prior.Body,
			ContentType: prior.ContentType,
			Validator:   etag,
			CachedAt:    now,
			TTL:         ttl,
		})
		return &Result{
			Key:         key,
			Body:        prior.Body,
			ContentType: prior.ContentType,
			Provenance:  ProvenanceRevalidated,
		}, nil
	}

	s.write(ctx, &cache.Record{
		Key:         key,
		Body:        resp.Body,
		ContentType: resp.ContentType,
		Validator:   resp.ETag,
		CachedAt:    now,
		TTL:         ttl,
	})
	return &Result{
		Key:         key,
		Body:        resp.Body,
		ContentType: resp.ContentType,
		Provenance:  provenance,
	}, nil
}

func (s *Service) write(ctx context.Context, rec *cache.Record) {
	if err := s.store.Put(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("key", rec.Key).Msg("cache write failed, serving fetched body")
	}
}
