// Command wardench exercises warden's public operation surface end to
// end: writes, reads, transactions, single-flight loading, eviction,
// and snapshot round-tripping. It is a smoke/benchmark harness, not a
// production service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/agilira/warden"
)

type session struct {
	UserID   int
	Token    string
	IssuedAt time.Time
}

func main() {
	sizeLimit := flag.Int("size-limit", 500, "maximum live entries before LRW eviction kicks in")
	snapshotPath := flag.String("snapshot", "", "path to save/restore a snapshot from (skipped if empty)")
	compress := flag.Bool("compress", true, "s2-compress the snapshot file")
	flag.Parse()

	cache, err := warden.New[string, session](warden.CacheConfig{
		Name:              "wardench",
		DefaultExpiration: time.Minute,
		LazyExpiration:    true,
		JanitorInterval:   5 * time.Second,
		SizeLimit:         *sizeLimit,
		EnableStats:       true,
		Hooks: []warden.HookConfig{
			{
				Name:   "audit",
				Events: []warden.HookEvent{warden.EventEvict, warden.EventExpire},
				Handler: func(_ context.Context, p warden.HookPayload) error {
					log.Printf("wardench: %s key=%v via=%s", p.Event, p.Key, p.Via)
					return nil
				},
			},
		},
	})
	if err != nil {
		log.Fatalf("warden.New: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()

	fmt.Println("=== Put/Get ===")
	basicPutGet(ctx, cache)

	fmt.Println("\n=== Fetch (single-flight read-through) ===")
	stampedeFetch(ctx, cache)

	fmt.Println("\n=== Transaction ===")
	transactional(ctx, cache)

	fmt.Println("\n=== Eviction pressure ===")
	evictionPressure(ctx, cache, *sizeLimit)

	if *snapshotPath != "" {
		fmt.Println("\n=== Snapshot round-trip ===")
		snapshotRoundTrip(ctx, cache, *snapshotPath, *compress)
	}

	stats, err := cache.Stats()
	if err != nil {
		log.Fatalf("cache.Stats: %v", err)
	}
	fmt.Printf("\n=== Stats ===\noperations=%d hits=%d misses=%d hit_rate=%.1f%% evictions=%d expirations=%d\n",
		stats.Operations, stats.Hits, stats.Misses, stats.HitRatio(), stats.Evictions, stats.Expirations)
}

func basicPutGet(ctx context.Context, cache *warden.Cache[string, session]) {
	s := session{UserID: 1, Token: "tok-1", IssuedAt: time.Now()}
	if err := cache.Put(ctx, "session:1", s, nil); err != nil {
		log.Fatalf("Put: %v", err)
	}
	got, ok := cache.Get(ctx, "session:1")
	if !ok {
		log.Fatal("expected session:1 to be present")
	}
	fmt.Printf("loaded session for user %d (token %s)\n", got.UserID, got.Token)
}

func stampedeFetch(ctx context.Context, cache *warden.Cache[string, session]) {
	const goroutines = 50
	var loads int32
	var mu sync.Mutex
	var wg sync.WaitGroup

	loader := func(ctx context.Context, key string) (warden.LoadResult[session], error) {
		mu.Lock()
		loads++
		mu.Unlock()
		time.Sleep(20 * time.Millisecond) // simulated backend latency
		return warden.LoadResult[session]{
			Value:   session{UserID: 2, Token: "tok-2", IssuedAt: time.Now()},
			Outcome: warden.LoadCommit,
		}, nil
	}

	start := time.Now()
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Fetch(ctx, "session:2", nil, loader); err != nil {
				log.Printf("Fetch: %v", err)
			}
		}()
	}
	wg.Wait()

	fmt.Printf("%d goroutines fetched session:2 in %v, loader ran %d time(s)\n", goroutines, time.Since(start), loads)
}

func transactional(ctx context.Context, cache *warden.Cache[string, session]) {
	err := cache.Transaction(ctx, []string{"session:a", "session:b"}, func(ctx context.Context) error {
		if err := cache.Put(ctx, "session:a", session{UserID: 10}, nil); err != nil {
			return err
		}
		return cache.Put(ctx, "session:b", session{UserID: 11}, nil)
	})
	if err != nil {
		log.Fatalf("Transaction: %v", err)
	}
	fmt.Println("committed session:a and session:b atomically")
}

func evictionPressure(ctx context.Context, cache *warden.Cache[string, session], limit int) {
	n := limit * 2
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("flood:%d", i)
		if err := cache.Put(ctx, key, session{UserID: i}, nil); err != nil {
			log.Fatalf("Put: %v", err)
		}
	}
	fmt.Printf("wrote %d entries against a %d size limit; cache now holds %d\n", n, limit, cache.Size())
}

func snapshotRoundTrip(ctx context.Context, cache *warden.Cache[string, session], path string, compress bool) {
	if err := cache.Save(path, compress); err != nil {
		log.Fatalf("Save: %v", err)
	}
	fmt.Printf("saved snapshot to %s (compress=%v)\n", path, compress)

	fresh, err := warden.New[string, session](warden.CacheConfig{Name: "wardench-restore"})
	if err != nil {
		log.Fatalf("warden.New: %v", err)
	}
	defer fresh.Close()

	if err := fresh.Load(ctx, path); err != nil {
		log.Fatalf("Load: %v", err)
	}
	fmt.Printf("restored %d entries into a fresh cache\n", fresh.Size())

	if err := os.Remove(path); err != nil {
		log.Printf("cleanup: %v", err)
	}
}
