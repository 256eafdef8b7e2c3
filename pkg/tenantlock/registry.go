// Copyright 2016 NEC Corporation.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Per-tenant mutual exclusion for NWA operations.  At most one vendor
// workflow may be in flight for a tenant at any time; different
// tenants proceed concurrently.  The registry is an explicitly owned
// object, constructed once and passed by reference.
package tenantlock

import (
	"sync"
)

type tenantEntry struct {
	sem     chan struct{}
	history []HistoryEntry
}

type Registry struct {
	mutex   sync.Mutex
	tenants map[string]*tenantEntry
}

func NewRegistry() *Registry {
	return &Registry{
		tenants: make(map[string]*tenantEntry),
	}
}

// Handle represents a held tenant lock.
type Handle struct {
	registry *Registry
	tenantID string
	entry    *tenantEntry
}

func (r *Registry) entryFor(tenantID string) *tenantEntry {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	entry, ok := r.tenants[tenantID]
	if !ok {
		entry = &tenantEntry{sem: make(chan struct{}, 1)}
		r.tenants[tenantID] = entry
	}
	return entry
}

// Acquire blocks until the tenant's lock is free and returns a handle
// the caller must Release.
func (r *Registry) Acquire(tenantID string) *Handle {
	entry := r.entryFor(tenantID)
	entry.sem <- struct{}{}
	return &Handle{registry: r, tenantID: tenantID, entry: entry}
}

func (h *Handle) Release() {
	<-h.entry.sem
}

// Remove drops a tenant's lock entry to bound memory growth.  Must be
// called by the goroutine holding the tenant's lock, after the tenant
// binding has been deleted, and before Release.
func (r *Registry) Remove(tenantID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.tenants, tenantID)
}

// LockedCount reports how many tenants currently hold their lock.
func (r *Registry) LockedCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	count := 0
	for _, entry := range r.tenants {
		if len(entry.sem) > 0 {
			count++
		}
	}
	return count
}

// AnyLocked reports whether any tenant currently holds its lock.
// Shutdown uses this to decide whether a drain has to wait.
func (r *Registry) AnyLocked() bool {
	return r.LockedCount() > 0
}
