package appointment

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultLedgerTTL is how long an applied stamp is remembered. It only needs
// to outlive the slowest in-flight action request.
const DefaultLedgerTTL = 10 * time.Minute

// Stamp orders outcomes for one appointment. Version is the backend's row
// version when it reports one; Seq is the local issue order of the request.
type Stamp struct {
	Version int64
	Seq     uint64
}

// newer reports whether s supersedes cur. Backend versions decide when both
// sides carry one, otherwise the request issued last wins.
func (s Stamp) newer(cur Stamp) bool {
	if s.Version > 0 && cur.Version > 0 {
		return s.Version > cur.Version
	}
	return s.Seq > cur.Seq
}

// VersionLedger records the newest applied stamp per appointment so that a
// slow response cannot overwrite the outcome of a later request. Stamps
// expire after the ledger's TTL.
type VersionLedger struct {
	mu      sync.Mutex
	seq     uint64
	applied *cache.Cache
}

func NewVersionLedger(ttl time.Duration) *VersionLedger {
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &VersionLedger{applied: cache.New(ttl, ttl)}
}

// Issue returns the next local sequence number. Call it before sending the
// request.
func (l *VersionLedger) Issue() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	return l.seq
}

// Apply records st for id and reports true when it is newer than what was
// applied before. A stale stamp is ignored.
func (l *VersionLedger) Apply(id string, st Stamp) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.applied.Get(id); ok && !st.newer(cur.(Stamp)) {
		return false
	}
	l.applied.SetDefault(id, st)
	return true
}

// Current returns the applied stamp for id.
func (l *VersionLedger) Current(id string) (Stamp, bool) {
	v, ok := l.applied.Get(id)
	if !ok {
		return Stamp{}, false
	}
	return v.(Stamp), true
}

// Len reports how many appointments have a remembered stamp.
func (l *VersionLedger) Len() int {
	return l.applied.ItemCount()
}
