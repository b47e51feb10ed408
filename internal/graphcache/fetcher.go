package graphcache

import (
	"context"
	"log"

	"github.com/recera/graphchart/pkg/backend"
	"github.com/recera/graphchart/pkg/render"
)

// Upstream is the fetcher being cached
type Upstream interface {
	GetGraphData(ctx context.Context, req backend.Request) (*render.GraphData, error)
}

// Fetcher serves repeated requests from a Store and falls through to
// Next on a miss. Only successful responses are cached.
type Fetcher struct {
	Next  Upstream
	Store Store
}

// GetGraphData implements the reconciler's fetcher contract
func (f *Fetcher) GetGraphData(ctx context.Context, req backend.Request) (*render.GraphData, error) {
	if f.Store == nil {
		return f.Next.GetGraphData(ctx, req)
	}

	key, err := Key(req)
	if err != nil {
		return nil, err
	}

	data, ok, err := f.Store.Get(ctx, key)
	if err != nil {
		log.Printf("[Cache] Lookup failed, bypassing cache: %v", err)
	} else if ok {
		return data, nil
	}

	data, err = f.Next.GetGraphData(ctx, req)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := f.Store.Put(ctx, key, data); err != nil {
			log.Printf("[Cache] Failed to store response: %v", err)
		}
	}
	return data, nil
}
