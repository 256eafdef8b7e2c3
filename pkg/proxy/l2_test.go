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

	"github.com/stretchr/testify/assert"

	"github.com/openstack-archive/networking-nec-sub001/pkg/bindings"
)

func TestEnsureL2NetworkFreshTenant(t *testing.T) {
	p, driver, store := newTestProxy()

	err := p.EnsureL2Network(testInfo(testNet, testDev, OwnerDHCP))
	assert.Nil(t, err)
	assert.Equal(t, []string{"CreateTenant", "CreateTenantNW", "CreateVlan"},
		driver.names())

	value, err := store.Get(testTenant, testNwaTenant)
	assert.Nil(t, err)
	assert.Equal(t, true, value["CreateTenant"])
	assert.Equal(t, true, value["CreateTenantNW"])
	assert.Equal(t, "net100", value["NW_"+testNet])
	assert.Equal(t, "LNW_BusinessVLAN_100",
		value["NW_"+testNet+"_nwa_network_name"])
	assert.Equal(t, "300",
		value["VLAN_"+testNet+"_"+testGroup+"_GD_VlanID"])
}

func TestEnsureL2NetworkIsIdempotent(t *testing.T) {
	p, driver, _ := newTestProxy()
	info := testInfo(testNet, testDev, OwnerDHCP)

	assert.Nil(t, p.EnsureL2Network(info))
	assert.Nil(t, p.EnsureL2Network(info))
	assert.Equal(t, 1, driver.count("CreateVlan"))
	assert.Equal(t, 1, driver.count("CreateTenant"))
}

func TestCreateGeneralDevRefCount(t *testing.T) {
	p, driver, store := newTestProxy()

	err := p.CreateGeneralDev(testInfo(testNet, testDev, "compute:nova"))
	assert.Nil(t, err)
	assert.Equal(t, 1, driver.count("CreateGeneralDev"))

	// second port on the same segment only raises the count
	err = p.CreateGeneralDev(testInfo(testNet, testDev2, OwnerDHCP))
	assert.Nil(t, err)
	assert.Equal(t, 1, driver.count("CreateGeneralDev"))

	value, err := store.Get(testTenant, testNwaTenant)
	assert.Nil(t, err)
	assert.Equal(t, "2",
		value["VLAN_"+testNet+"_"+testGroup+"_GD_RefCount"])
	assert.Equal(t, "compute:nova",
		value["DEV_"+testDev+"_device_owner"])
	assert.Equal(t, "192.168.100.102",
		value["DEV_"+testDev+"_"+testNet+"_ip_address"])
}

func TestCreateGeneralDevDuplicateEventIsNoOp(t *testing.T) {
	p, driver, store := newTestProxy()
	info := testInfo(testNet, testDev, "compute:nova")

	assert.Nil(t, p.CreateGeneralDev(info))
	assert.Nil(t, p.CreateGeneralDev(info))
	assert.Equal(t, 1, driver.count("CreateGeneralDev"))

	value, err := store.Get(testTenant, testNwaTenant)
	assert.Nil(t, err)
	// refcount 1 round-trips through the legacy bool coercion
	assert.Equal(t, true,
		value["VLAN_"+testNet+"_"+testGroup+"_GD_RefCount"])

	// the single real detach still reaches the vendor and cascades
	assert.Nil(t, p.DeleteGeneralDev(info))
	assert.Equal(t, 1, driver.count("DeleteGeneralDev"))
	_, err = store.Get(testTenant, testNwaTenant)
	assert.Equal(t, bindings.ErrBindingNotFound, err)
}

func TestDeleteGeneralDevKeepsSegmentWhileReferenced(t *testing.T) {
	p, driver, store := newTestProxy()

	assert.Nil(t, p.CreateGeneralDev(testInfo(testNet, testDev, "compute:nova")))
	assert.Nil(t, p.CreateGeneralDev(testInfo(testNet, testDev2, OwnerDHCP)))

	assert.Nil(t, p.DeleteGeneralDev(testInfo(testNet, testDev, "compute:nova")))
	assert.Equal(t, 0, driver.count("DeleteGeneralDev"))

	value, err := store.Get(testTenant, testNwaTenant)
	assert.Nil(t, err)
	// refcount 1 round-trips through the legacy bool coercion
	assert.Equal(t, true,
		value["VLAN_"+testNet+"_"+testGroup+"_GD_RefCount"])
	_, ok := value["DEV_"+testDev+"_device_owner"]
	assert.False(t, ok)
}

func TestDeleteGeneralDevLastConsumerCascade(t *testing.T) {
	p, driver, store := newTestProxy()

	assert.Nil(t, p.CreateGeneralDev(testInfo(testNet, testDev, "compute:nova")))
	driver.calls = nil

	assert.Nil(t, p.DeleteGeneralDev(testInfo(testNet, testDev, "compute:nova")))
	assert.Equal(t, []string{
		"DeleteGeneralDev", "DeleteVlan", "DeleteTenantNW", "DeleteTenant",
	}, driver.names())

	_, err := store.Get(testTenant, testNwaTenant)
	assert.Equal(t, bindings.ErrBindingNotFound, err)
	assert.False(t, p.locks.AnyLocked())
}

func TestCreateGeneralDevRetryAnsweredFromHistory(t *testing.T) {
	p, driver, store := newTestProxy()
	info := testInfo(testNet, testDev, "compute:nova")

	assert.Nil(t, p.CreateGeneralDev(info))
	assert.Equal(t, 1, driver.count("CreateGeneralDev"))

	// simulate a lost persist: the binding row vanishes but the
	// vendor-side device exists and the success is cached
	assert.Nil(t, store.Delete(testTenant, testNwaTenant))
	assert.Nil(t, p.CreateGeneralDev(info))
	assert.Equal(t, 1, driver.count("CreateGeneralDev"))
}

func TestDeleteGeneralDevFoldsCachedCreate(t *testing.T) {
	p, driver, _ := newTestProxy()
	info := testInfo(testNet, testDev, "compute:nova")

	assert.Nil(t, p.CreateGeneralDev(info))
	assert.Nil(t, p.DeleteGeneralDev(info))
	assert.Equal(t, 1, driver.count("DeleteGeneralDev"))

	// after the fold a new create must reach the vendor again
	assert.Nil(t, p.CreateGeneralDev(info))
	assert.Equal(t, 2, driver.count("CreateGeneralDev"))
}

func TestCreateGeneralDevFailurePersistsSnapshot(t *testing.T) {
	p, driver, store := newTestProxy()
	driver.fail["CreateGeneralDev"] = true

	err := p.CreateGeneralDev(testInfo(testNet, testDev, "compute:nova"))
	assert.NotNil(t, err)
	perr, ok := err.(*ProxyError)
	assert.True(t, ok)
	assert.NotNil(t, perr.Snapshot)

	// the partial progress (tenant, network, VLAN) is persisted
	value, err := store.Get(testTenant, testNwaTenant)
	assert.Nil(t, err)
	assert.Equal(t, true, value["CreateTenant"])
	assert.Equal(t, string(bindings.StateCreating),
		value["VLAN_"+testNet+"_"+testGroup+"_GD"])
}

func TestDeleteGeneralDevUnknownDevice(t *testing.T) {
	p, _, _ := newTestProxy()

	assert.Nil(t, p.CreateGeneralDev(testInfo(testNet, testDev, "compute:nova")))
	err := p.DeleteGeneralDev(testInfo(testNet, testDev2, OwnerDHCP))
	assert.NotNil(t, err)
}

func TestCreateGeneralDevWaitsForReadyAck(t *testing.T) {
	p, _, _ := newTestProxy()
	info := testInfo(testNet, testDev, "compute:nova")

	p.ready.Notify(testDev, testNet)
	assert.Nil(t, p.CreateGeneralDev(info))
}
