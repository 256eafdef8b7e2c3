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

// Allocation of NWA-side policy object ids.  Every tenant firewall
// carries separate id namespaces for policies, address groups and
// service groups; ids must be explicitly released when the vendor
// reports them deleted or they leak.
package idpool

import (
	"errors"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

var ErrPoolExhausted = errors.New("id pool exhausted")

// Kind selects one id namespace within a device.
type Kind string

const (
	KindPolicy       Kind = "policy"
	KindAddressGroup Kind = "address_group"
	KindServiceGroup Kind = "service_group"
)

// PoolKey identifies one id namespace: a device (tenant firewall or
// load balancer) and the kind of object the ids number.
type PoolKey struct {
	DeviceName string
	Kind       Kind
}

type pool struct {
	used *roaring.Bitmap
	min  uint32
	max  uint32
}

// Manager owns the id pools of all devices.
type Manager struct {
	mutex sync.Mutex
	pools map[PoolKey]*pool
	min   uint32
	max   uint32
}

// NewManager creates a manager whose pools allocate ids in
// [minID, maxID].
func NewManager(minID, maxID uint32) *Manager {
	return &Manager{
		pools: make(map[PoolKey]*pool),
		min:   minID,
		max:   maxID,
	}
}

func (m *Manager) poolFor(key PoolKey) *pool {
	p, ok := m.pools[key]
	if !ok {
		p = &pool{used: roaring.New(), min: m.min, max: m.max}
		m.pools[key] = p
	}
	return p
}

// Allocate reserves the lowest free id in the namespace.
func (m *Manager) Allocate(key PoolKey) (uint32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	p := m.poolFor(key)
	for id := p.min; id <= p.max; id++ {
		if !p.used.Contains(id) {
			p.used.Add(id)
			return id, nil
		}
	}
	return 0, ErrPoolExhausted
}

// Release frees a single id.
func (m *Manager) Release(key PoolKey, id uint32) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if p, ok := m.pools[key]; ok {
		p.used.Remove(id)
	}
}

// Clear frees the ids the vendor reported deleted in a policy-setting
// response.
func (m *Manager) Clear(key PoolKey, ids []uint32) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	p, ok := m.pools[key]
	if !ok {
		return
	}
	for _, id := range ids {
		p.used.Remove(id)
	}
}

// DropDevice discards every namespace of a device, used when the
// device itself is deleted.
func (m *Manager) DropDevice(deviceName string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for key := range m.pools {
		if key.DeviceName == deviceName {
			delete(m.pools, key)
		}
	}
}

// Used reports the number of allocated ids in a namespace.
func (m *Manager) Used(key PoolKey) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if p, ok := m.pools[key]; ok {
		return int(p.used.GetCardinality())
	}
	return 0
}
