package syncer

import (
	"context"
	"sort"
	"sync"

	"github.com/newguy103/chatterm/internal/chat"
	"github.com/newguy103/chatterm/internal/logging"
)

// HistoryFetcher is the slice of the transport gateway the loader needs.
type HistoryFetcher interface {
	// History returns up to amount messages for recipient, newest first.
	History(ctx context.Context, recipient string, amount int) ([]chat.Message, error)
}

// LoadResult reports the outcome of a bulk history load.
type LoadResult struct {
	// Loaded lists recipients whose history was fetched and seeded.
	Loaded []string

	// Failed lists recipients whose fetch failed; their conversations
	// exist but are empty.
	Failed []string
}

// AllFailed reports whether no recipient loaded at all.
func (r LoadResult) AllFailed() bool {
	return len(r.Loaded) == 0 && len(r.Failed) > 0
}

// LoadHistory seeds the store with one history fetch per recipient. The
// fetches run concurrently and the call returns only after every one has
// settled; partial failure is reported per recipient rather than aborting
// the whole load. Conversations are registered up front in server order
// so the recipient list is deterministic regardless of completion order.
func LoadHistory(ctx context.Context, fetcher HistoryFetcher, store *chat.Store, recipients []string, amount int) LoadResult {
	log := logging.Component("syncer")

	for _, recipient := range recipients {
		store.Ensure(recipient)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result LoadResult
	)
	for _, recipient := range recipients {
		wg.Add(1)
		go func(recipient string) {
			defer wg.Done()

			history, err := fetcher.History(ctx, recipient, amount)
			if err != nil {
				log.Warn().Str("recipient", recipient).Err(err).Msg("history fetch failed")
				mu.Lock()
				result.Failed = append(result.Failed, recipient)
				mu.Unlock()
				return
			}

			// Server order is newest first; the store wants oldest first.
			for i := len(history) - 1; i >= 0; i-- {
				store.Append(recipient, history[i])
			}
			mu.Lock()
			result.Loaded = append(result.Loaded, recipient)
			mu.Unlock()
		}(recipient)
	}
	wg.Wait()

	sort.Strings(result.Loaded)
	sort.Strings(result.Failed)
	log.Info().
		Int("loaded", len(result.Loaded)).
		Int("failed", len(result.Failed)).
		Msg("history load settled")
	return result
}
