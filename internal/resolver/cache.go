package resolver

import (
	"sync"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
)

// ContractCache maps defaulted symbol-spec tuples to resolved contracts.
// Entries are stored and returned by value so no caller can mutate a cached
// contract in place. No TTL or eviction: a qualified contract identity is
// stable for the life of the process. Clear exists for tests.
type ContractCache struct {
	mu        sync.RWMutex
	contracts map[string]domain.ResolvedContract
	hits      int64
	misses    int64
}

// NewContractCache creates an empty contract cache.
func NewContractCache() *ContractCache {
	return &ContractCache{contracts: make(map[string]domain.ResolvedContract)}
}

// Get returns the cached contract for a defaulted spec, if any.
func (c *ContractCache) Get(spec domain.SymbolSpec) (domain.ResolvedContract, bool) {
	key := spec.CacheKey()
	c.mu.Lock()
	defer c.mu.Unlock()
	contract, ok := c.contracts[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return contract, ok
}

// Put stores a resolved contract under the defaulted spec tuple.
func (c *ContractCache) Put(spec domain.SymbolSpec, contract domain.ResolvedContract) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contracts[spec.CacheKey()] = contract
}

// Stats returns the hit and miss counters.
func (c *ContractCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Len returns the number of cached contracts.
func (c *ContractCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.contracts)
}

// Clear drops every entry and resets the counters.
func (c *ContractCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contracts = make(map[string]domain.ResolvedContract)
	c.hits = 0
	c.misses = 0
}
