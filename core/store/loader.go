package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/asaidimu/go-maktaba/core/schema"
)

// Loader produces the documents for a collection. Implementations read
// from wherever the content lives, such as a content directory or a
// database table.
type Loader interface {
	Load(ctx context.Context) ([]schema.Document, error)
}

// Watcher is implemented by loaders that can report when their underlying
// content changes. Watch blocks until ctx is cancelled or watching fails,
// invoking onChange after each change.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Mount creates a collection and fills it from the loader. When watch is
// set and the loader implements Watcher, a background goroutine reloads
// the collection on every change until ctx is cancelled.
//
// A failed initial load drops the half-created collection and returns
// the error.
func (s *Store) Mount(ctx context.Context, def *schema.CollectionDefinition, loader Loader, watch bool) (*Collection, error) {
	if def == nil {
		return nil, fmt.Errorf("collection definition is nil")
	}
	if loader == nil {
		return nil, fmt.Errorf("loader for %q is nil", def.Name)
	}
	coll, err := s.CreateCollection(def)
	if err != nil {
		return nil, err
	}

	err = s.withEventEmission("load", def.Name, CollectionLoadStart, CollectionLoadSuccess, CollectionLoadFailed, func() (int, error) {
		docs, err := loader.Load(ctx)
		if err != nil {
			return 0, fmt.Errorf("loading collection %s: %w", def.Name, err)
		}
		if err := coll.Replace(docs); err != nil {
			return 0, err
		}
		return len(docs), nil
	})
	if err != nil {
		s.Drop(def.Name)
		return nil, err
	}
	s.logger.Info("Loaded collection",
		zap.String("collection", def.Name),
		zap.Int("documents", coll.Len()))

	if watch {
		watcher, ok := loader.(Watcher)
		if !ok {
			s.logger.Warn("Watch requested but loader cannot watch",
				zap.String("collection", def.Name))
			return coll, nil
		}
		go s.watchLoop(ctx, coll, loader, watcher)
	}
	return coll, nil
}

// Reload refreshes a mounted collection from its loader, swapping the
// document set atomically. Queries running during a reload keep their
// snapshot.
func (s *Store) Reload(ctx context.Context, coll *Collection, loader Loader) error {
	return s.withEventEmission("reload", coll.def.Name, CollectionReloadStart, CollectionReloadSuccess, CollectionReloadFailed, func() (int, error) {
		docs, err := loader.Load(ctx)
		if err != nil {
			return 0, fmt.Errorf("reloading collection %s: %w", coll.def.Name, err)
		}
		if err := coll.Replace(docs); err != nil {
			return 0, err
		}
		return len(docs), nil
	})
}

func (s *Store) watchLoop(ctx context.Context, coll *Collection, loader Loader, watcher Watcher) {
	err := watcher.Watch(ctx, func() {
		if err := s.Reload(ctx, coll, loader); err != nil {
			s.logger.Error("Reload failed",
				zap.String("collection", coll.def.Name),
				zap.Error(err))
		}
	})
	if err != nil && ctx.Err() == nil {
		s.logger.Error("Collection watcher stopped",
			zap.String("collection", coll.def.Name),
			zap.Error(err))
	}
}
