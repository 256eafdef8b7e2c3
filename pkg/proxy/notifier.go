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

package proxy

import (
	"sync"
	"time"
)

// DeviceReadyNotifier hands acknowledgements from the plugin side to
// the goroutine waiting for a freshly created device to become
// reachable.  Waiting replaces a fixed settle delay: the waiter
// proceeds as soon as the ack arrives, or after the timeout.
type DeviceReadyNotifier struct {
	mutex   sync.Mutex
	ready   map[string]bool
	waiters map[string]chan struct{}
}

func NewDeviceReadyNotifier() *DeviceReadyNotifier {
	return &DeviceReadyNotifier{
		ready:   make(map[string]bool),
		waiters: make(map[string]chan struct{}),
	}
}

func readyKey(deviceID, networkID string) string {
	return deviceID + "|" + networkID
}

// Notify records that the device interface is up.  An ack arriving
// before anyone waits is remembered for the next Wait.
func (n *DeviceReadyNotifier) Notify(deviceID, networkID string) {
	key := readyKey(deviceID, networkID)
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if ch, ok := n.waiters[key]; ok {
		close(ch)
		delete(n.waiters, key)
		return
	}
	n.ready[key] = true
}

// Wait blocks until Notify is called for the device or the timeout
// elapses.  It reports whether the ack arrived in time.
func (n *DeviceReadyNotifier) Wait(deviceID, networkID string,
	timeout time.Duration) bool {
	key := readyKey(deviceID, networkID)

	n.mutex.Lock()
	if n.ready[key] {
		delete(n.ready, key)
		n.mutex.Unlock()
		return true
	}
	ch, ok := n.waiters[key]
	if !ok {
		ch = make(chan struct{})
		n.waiters[key] = ch
	}
	n.mutex.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		n.mutex.Lock()
		if n.waiters[key] == ch {
			delete(n.waiters, key)
		}
		n.mutex.Unlock()
		return false
	}
}
