// Package badger provides a persistent webstorage.Area on Badger v3.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bg "github.com/dgraph-io/badger/v3"

	"github.com/unkn0wn-root/kvault"
	"github.com/unkn0wn-root/kvault/webstorage"
)

type Config struct {
	// Dir is the storage directory. Required unless InMemory.
	Dir      string
	InMemory bool
	// SyncWrites fsyncs after each write.
	SyncWrites bool
	// GCInterval runs value log GC periodically; 0 disables it.
	GCInterval time.Duration
	// GCDiscardRatio is passed to RunValueLogGC. 0 => 0.5.
	GCDiscardRatio float64
	Logger         kvault.Logger // nil => NopLogger
}

type Area struct {
	db  *bg.DB
	log kvault.Logger

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ webstorage.Area = (*Area)(nil)

func New(cfg Config) (*Area, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, errors.New("badger area: dir is required")
	}
	log := cfg.Logger
	if log == nil {
		log = kvault.NopLogger{}
	}

	dir := cfg.Dir
	if cfg.InMemory {
		dir = ""
	}
	opts := bg.DefaultOptions(dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(&badgerLogger{log: log})

	db, err := bg.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger area: open: %w", err)
	}
	a := &Area{db: db, log: log, stopCh: make(chan struct{})}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 {
			ratio = 0.5
		}
		a.wg.Add(1)
		go a.gcLoop(cfg.GCInterval, ratio)
	}
	return a, nil
}

func (a *Area) GetItem(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := a.db.View(func(txn *bg.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, bg.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (a *Area) SetItem(_ context.Context, key string, value []byte) error {
	return a.db.Update(func(txn *bg.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (a *Area) RemoveItem(_ context.Context, key string) error {
	return a.db.Update(func(txn *bg.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (a *Area) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	err := a.db.View(func(txn *bg.Txn) error {
		opts := bg.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			out = append(out, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return out, err
}

func (a *Area) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.stopCh)
		a.wg.Wait()
		err = a.db.Close()
	})
	return err
}

func (a *Area) gcLoop(interval time.Duration, ratio float64) {
	defer a.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			for {
				// one rewrite per call; repeat until nothing is left to reclaim
				if err := a.db.RunValueLogGC(ratio); err != nil {
					if !errors.Is(err, bg.ErrNoRewrite) {
						a.log.Warn("badger value log gc failed", kvault.Fields{"err": err})
					}
					break
				}
			}
		case <-a.stopCh:
			return
		}
	}
}

// badgerLogger routes badger's printf-style logs into kvault.Logger.
type badgerLogger struct {
	log kvault.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...), nil)
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...), nil)
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...), nil)
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...), nil)
}
