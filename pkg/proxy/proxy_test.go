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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openstack-archive/networking-nec-sub001/pkg/testutil"
)

func TestOperationsSerializedPerTenant(t *testing.T) {
	p, driver, _ := newTestProxy()

	// holding the tenant lock keeps the reconciler out
	handle := p.Locks().Acquire(testTenant)

	done := make(chan struct{})
	go func() {
		assert.Nil(t, p.CreateGeneralDev(
			testInfo(testNet, testDev, "compute:nova")))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("operation ran while the tenant lock was held")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, 0, len(driver.calls))

	handle.Release()
	testutil.WaitFor(t, "create completes", time.Second,
		func(last bool) (bool, error) {
			return testutil.WaitCondition(t, last, func() bool {
				select {
				case <-done:
					return true
				default:
					return false
				}
			}), nil
		})
	assert.Equal(t, 1, driver.count("CreateGeneralDev"))
}

func TestWorkflowFailureCarriesVendorMessage(t *testing.T) {
	p, driver, _ := newTestProxy()
	driver.fail["CreateTenantNW"] = true

	err := p.EnsureL2Network(testInfo(testNet, testDev, OwnerDHCP))
	assert.NotNil(t, err)
	// code 254 from the canned failure body
	assert.Contains(t, err.Error(), "VLAN is still in use")
}
