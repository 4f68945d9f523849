package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nikishkaa/docx-bot/internal/model"
)

// ErrMalformed is returned by Load when the persisted ledger cannot be trusted.
var ErrMalformed = errors.New("malformed download ledger")

// Counts maps file name -> user id -> cumulative downloads.
type Counts map[string]map[string]int

// Clone returns a deep copy of c.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for file, users := range c {
		u := make(map[string]int, len(users))
		for id, n := range users {
			u[id] = n
		}
		out[file] = u
	}
	return out
}

// Validate checks that every file maps to a user object and every count is non-negative.
func (c Counts) Validate() error {
	for file, users := range c {
		if users == nil {
			return fmt.Errorf("%w: %q is not an object", ErrMalformed, file)
		}
		for id, n := range users {
			if n < 0 {
				return fmt.Errorf("%w: negative count %d for %q/%q", ErrMalformed, n, file, id)
			}
		}
	}
	return nil
}

// Persister stores the full ledger. Save must replace the previous state atomically.
type Persister interface {
	Load(ctx context.Context) (Counts, error)
	Save(ctx context.Context, c Counts) error
}

// Ledger counts file deliveries per user. Every Record is persisted before it returns.
// Reads are served from memory and may run concurrently with Record.
type Ledger struct {
	mu     sync.RWMutex
	counts Counts
	store  Persister
}

// New creates an empty ledger backed by store. Call Load before serving.
func New(store Persister) *Ledger {
	return &Ledger{counts: Counts{}, store: store}
}

// Load replaces the in-memory state with the persisted ledger.
func (l *Ledger) Load(ctx context.Context) error {
	c, err := l.store.Load(ctx)
	if err != nil {
		return err
	}
	if c == nil {
		c = Counts{}
	}
	if err := c.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.counts = c
	l.mu.Unlock()
	return nil
}

// Record increments the count for (file, user) by one and persists the
// ledger. If persisting fails the increment is undone. It returns the new
// total for file.
func (l *Ledger) Record(ctx context.Context, file, user string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	users, existed := l.counts[file]
	if users == nil {
		users = make(map[string]int)
		l.counts[file] = users
	}
	prev, hadUser := users[user]
	users[user] = prev + 1

	if err := l.store.Save(ctx, l.counts); err != nil {
		switch {
		case !existed:
			delete(l.counts, file)
		case !hadUser:
			delete(users, user)
		default:
			users[user] = prev
		}
		return 0, fmt.Errorf("persist ledger: %w", err)
	}
	return sum(users), nil
}

// QueryTotals returns the total downloads and unique downloaders for file.
func (l *Ledger) QueryTotals(file string) model.FileStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	users := l.counts[file]
	return model.FileStats{Name: file, Total: sum(users), UniqueUsers: len(users)}
}

// QueryForUser returns the downloads made by user across all files.
func (l *Ledger) QueryForUser(user string) model.UserStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st := model.UserStats{UserID: user, PerFile: map[string]int{}}
	for file, users := range l.counts {
		if n := users[user]; n > 0 {
			st.PerFile[file] = n
			st.Total += n
			st.Files++
		}
	}
	return st
}

// Snapshot returns a deep copy of the ledger.
func (l *Ledger) Snapshot() Counts {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counts.Clone()
}

// Top returns up to n files ordered by total downloads, then by name.
// n <= 0 returns every file.
func (l *Ledger) Top(n int) []model.FileStats {
	l.mu.RLock()
	out := make([]model.FileStats, 0, len(l.counts))
	for file, users := range l.counts {
		out = append(out, model.FileStats{Name: file, Total: sum(users), UniqueUsers: len(users)})
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func sum(users map[string]int) int {
	total := 0
	for _, n := range users {
		total += n
	}
	return total
}
