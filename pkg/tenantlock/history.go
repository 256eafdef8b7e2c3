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

package tenantlock

// historyDepth bounds the per-tenant operation history.  Two entries
// are enough to catch the rapid create+delete churn the event adapter
// can emit for a port that is created and immediately removed.
const historyDepth = 2

// HistoryEntry records one successfully completed vendor operation.
// Failed operations are never recorded.
type HistoryEntry struct {
	Operation string
	URL       string
	Body      string
	Code      int
	Response  map[string]interface{}
}

// RecordSuccess appends a completed operation to the tenant's history,
// evicting the oldest entry beyond the depth bound.
func (r *Registry) RecordSuccess(tenantID string, entry HistoryEntry) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	e, ok := r.tenants[tenantID]
	if !ok {
		return
	}
	e.history = append(e.history, entry)
	if len(e.history) > historyDepth {
		e.history = e.history[len(e.history)-historyDepth:]
	}
}

// LookupSuccess returns the cached result of an identical operation,
// matched on operation name, url and exact request body.  A repeated
// identical create reuses this result instead of issuing a second
// vendor call.
func (r *Registry) LookupSuccess(tenantID, operation, url,
	body string) (HistoryEntry, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	e, ok := r.tenants[tenantID]
	if !ok {
		return HistoryEntry{}, false
	}
	for _, entry := range e.history {
		if entry.Operation == operation && entry.URL == url &&
			entry.Body == body {
			return entry, true
		}
	}
	return HistoryEntry{}, false
}

// FoldCreate erases the cached create entry matching a just-observed
// delete of the same logical resource.  The delete call itself is
// still issued to the vendor; only the history record is dropped so a
// later identical create is not answered from stale cache.
func (r *Registry) FoldCreate(tenantID, createOperation, url,
	body string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	e, ok := r.tenants[tenantID]
	if !ok {
		return false
	}
	for i, entry := range e.history {
		if entry.Operation == createOperation && entry.URL == url &&
			entry.Body == body {
			e.history = append(e.history[:i], e.history[i+1:]...)
			return true
		}
	}
	return false
}

// ClearHistory drops a tenant's whole history, used when the tenant
// binding is torn down.
func (r *Registry) ClearHistory(tenantID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if e, ok := r.tenants[tenantID]; ok {
		e.history = nil
	}
}
