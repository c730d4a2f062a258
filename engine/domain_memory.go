package engine

import (
	"sync"
	"time"
)

// DomainMemory remembers which engine last loaded each domain so later
// requests can skip the race. Entries expire after the TTL.
type DomainMemory struct {
	mu      sync.Mutex
	winners map[string]remembered
	ttl     time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type remembered struct {
	engine    string
	expiresAt time.Time
}

// NewDomainMemory creates a DomainMemory with the given TTL and starts a
// background goroutine that prunes expired entries every hour.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	dm := &DomainMemory{
		winners: make(map[string]remembered),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go dm.cleanupLoop(time.Hour)
	return dm
}

// Get returns the remembered engine name for a domain, or "" if unknown or expired.
func (dm *DomainMemory) Get(domain string) string {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	r, ok := dm.winners[domain]
	if !ok {
		return ""
	}
	if dm.now().After(r.expiresAt) {
		delete(dm.winners, domain)
		return ""
	}
	return r.engine
}

// Set records which engine succeeded for a domain.
func (dm *DomainMemory) Set(domain, engineName string) {
	dm.mu.Lock()
	dm.winners[domain] = remembered{engine: engineName, expiresAt: dm.now().Add(dm.ttl)}
	dm.mu.Unlock()
}

// Delete forgets a domain, e.g. after the remembered engine failed.
func (dm *DomainMemory) Delete(domain string) {
	dm.mu.Lock()
	delete(dm.winners, domain)
	dm.mu.Unlock()
}

// Stop terminates the background cleanup goroutine. Safe to call twice.
func (dm *DomainMemory) Stop() {
	dm.once.Do(func() { close(dm.done) })
}

func (dm *DomainMemory) prune() {
	now := dm.now()
	dm.mu.Lock()
	for domain, r := range dm.winners {
		if now.After(r.expiresAt) {
			delete(dm.winners, domain)
		}
	}
	dm.mu.Unlock()
}

func (dm *DomainMemory) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			dm.prune()
		}
	}
}
