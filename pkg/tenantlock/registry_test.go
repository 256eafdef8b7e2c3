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

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const tenant1 = "844eb55f21e84a289e9c22098d387e5d"
const tenant2 = "46d4a92a788b4813b7a0ba3c37405a46"

func TestRegistrySerializesPerTenant(t *testing.T) {
	registry := NewRegistry()
	assert.False(t, registry.AnyLocked())

	h1 := registry.Acquire(tenant1)
	assert.True(t, registry.AnyLocked())

	var order []int
	var mutex sync.Mutex
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h := registry.Acquire(tenant1)
		mutex.Lock()
		order = append(order, 2)
		mutex.Unlock()
		h.Release()
	}()

	// a different tenant is not blocked
	h2 := registry.Acquire(tenant2)
	h2.Release()

	time.Sleep(10 * time.Millisecond)
	mutex.Lock()
	order = append(order, 1)
	mutex.Unlock()
	h1.Release()
	wg.Wait()

	assert.Equal(t, []int{1, 2}, order)
	assert.False(t, registry.AnyLocked())
}

func TestRegistryLockedCount(t *testing.T) {
	registry := NewRegistry()
	assert.Equal(t, 0, registry.LockedCount())

	h1 := registry.Acquire(tenant1)
	h2 := registry.Acquire(tenant2)
	assert.Equal(t, 2, registry.LockedCount())

	h1.Release()
	assert.Equal(t, 1, registry.LockedCount())
	h2.Release()
	assert.Equal(t, 0, registry.LockedCount())
}

func TestRegistryRemove(t *testing.T) {
	registry := NewRegistry()
	h := registry.Acquire(tenant1)
	registry.RecordSuccess(tenant1, HistoryEntry{Operation: "CreateVLAN"})
	registry.Remove(tenant1)
	h.Release()

	_, found := registry.LookupSuccess(tenant1, "CreateVLAN", "", "")
	assert.False(t, found)
	assert.False(t, registry.AnyLocked())
}

func TestHistoryLookup(t *testing.T) {
	registry := NewRegistry()
	h := registry.Acquire(tenant1)
	defer h.Release()

	entry := HistoryEntry{
		Operation: "CreateGeneralDev",
		URL:       "/umf/workflow/CreateGeneralDev/execution",
		Body:      `{"TenantID":"DC1_x"}`,
		Code:      200,
		Response:  map[string]interface{}{"status": "SUCCEED"},
	}
	registry.RecordSuccess(tenant1, entry)

	got, found := registry.LookupSuccess(tenant1, entry.Operation,
		entry.URL, entry.Body)
	assert.True(t, found)
	assert.Equal(t, entry, got)

	// different body is a different logical resource
	_, found = registry.LookupSuccess(tenant1, entry.Operation,
		entry.URL, `{"TenantID":"DC1_y"}`)
	assert.False(t, found)

	// other tenants see nothing
	_, found = registry.LookupSuccess(tenant2, entry.Operation,
		entry.URL, entry.Body)
	assert.False(t, found)
}

func TestHistoryDepthBound(t *testing.T) {
	registry := NewRegistry()
	h := registry.Acquire(tenant1)
	defer h.Release()

	registry.RecordSuccess(tenant1, HistoryEntry{Operation: "a", Body: "1"})
	registry.RecordSuccess(tenant1, HistoryEntry{Operation: "b", Body: "2"})
	registry.RecordSuccess(tenant1, HistoryEntry{Operation: "c", Body: "3"})

	_, found := registry.LookupSuccess(tenant1, "a", "", "1")
	assert.False(t, found)
	_, found = registry.LookupSuccess(tenant1, "b", "", "2")
	assert.True(t, found)
	_, found = registry.LookupSuccess(tenant1, "c", "", "3")
	assert.True(t, found)
}

func TestHistoryFoldCreate(t *testing.T) {
	registry := NewRegistry()
	h := registry.Acquire(tenant1)
	defer h.Release()

	entry := HistoryEntry{
		Operation: "CreateGeneralDev",
		URL:       "/umf/workflow/CreateGeneralDev/execution",
		Body:      `{"TenantID":"DC1_x"}`,
	}
	registry.RecordSuccess(tenant1, entry)

	// delete of the same logical resource erases the create record
	folded := registry.FoldCreate(tenant1, entry.Operation, entry.URL,
		entry.Body)
	assert.True(t, folded)

	_, found := registry.LookupSuccess(tenant1, entry.Operation,
		entry.URL, entry.Body)
	assert.False(t, found)

	// folding twice is a no-op
	assert.False(t, registry.FoldCreate(tenant1, entry.Operation,
		entry.URL, entry.Body))
}
