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

package agent

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/openstack-archive/networking-nec-sub001/pkg/bindings"
	"github.com/openstack-archive/networking-nec-sub001/pkg/nwaapi"
	"github.com/openstack-archive/networking-nec-sub001/pkg/proxy"
)

const (
	testTenant    = "844eb55f21e84a289e9c22098d387e5d"
	testNwaTenant = "DC1_844eb55f21e84a289e9c22098d387e5d"
	testNet       = "3c9d3b3b-7d2d-4c2e-8e35-6eb51d7d0c97"
	testDev       = "e56ef9aa-96f0-4b9f-9b8a-8bbf2e7d0c11"
	testGroup     = "OpenStack/DC1/APP"
)

// stubDriver answers every vendor operation with success and records
// the operation names.
type stubDriver struct {
	calls []string
}

func (d *stubDriver) ok(name string,
	data map[string]interface{}) (*nwaapi.WorkflowResult, error) {
	d.calls = append(d.calls, name)
	return &nwaapi.WorkflowResult{
		HTTPStatus: 200,
		Status:     nwaapi.StatusSucceed,
		ResultData: data,
	}, nil
}

func (d *stubDriver) count(name string) int {
	n := 0
	for _, c := range d.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (d *stubDriver) CreateTenant(string) (int, map[string]interface{}, error) {
	d.calls = append(d.calls, "CreateTenant")
	return 200, nil, nil
}

func (d *stubDriver) DeleteTenant(string) (int, map[string]interface{}, error) {
	d.calls = append(d.calls, "DeleteTenant")
	return 200, nil, nil
}

func (d *stubDriver) CreateTenantNW(_, _ string) (*nwaapi.WorkflowResult, error) {
	return d.ok("CreateTenantNW", nil)
}

func (d *stubDriver) DeleteTenantNW(string) (*nwaapi.WorkflowResult, error) {
	return d.ok("DeleteTenantNW", nil)
}

func (d *stubDriver) CreateVlan(_, _, _, _, _ string) (*nwaapi.WorkflowResult, error) {
	return d.ok("CreateVlan", map[string]interface{}{
		"LogicalNWName": "LNW_BusinessVLAN_100",
		"VlanID":        "300",
	})
}

func (d *stubDriver) DeleteVlan(_, _, _ string) (*nwaapi.WorkflowResult, error) {
	return d.ok("DeleteVlan", nil)
}

func (d *stubDriver) CreateGeneralDev(_, _, _, _, _ string) (*nwaapi.WorkflowResult, error) {
	return d.ok("CreateGeneralDev", nil)
}

func (d *stubDriver) DeleteGeneralDev(_, _, _, _ string) (*nwaapi.WorkflowResult, error) {
	return d.ok("DeleteGeneralDev", nil)
}

func (d *stubDriver) CreateTenantFW(_, _, _, _, _ string) (*nwaapi.WorkflowResult, error) {
	return d.ok("CreateTenantFW", map[string]interface{}{
		"TenantFWName": "TFW8",
	})
}

func (d *stubDriver) UpdateTenantFW(_, _, _, _, _, _ string) (*nwaapi.WorkflowResult, error) {
	return d.ok("UpdateTenantFW", nil)
}

func (d *stubDriver) DeleteTenantFW(_, _, _, _ string) (*nwaapi.WorkflowResult, error) {
	return d.ok("DeleteTenantFW", nil)
}

func (d *stubDriver) SettingNat(_, _, _, _, _, _ string) (*nwaapi.WorkflowResult, error) {
	return d.ok("SettingNat", nil)
}

func (d *stubDriver) DeleteNat(_, _, _, _, _, _ string) (*nwaapi.WorkflowResult, error) {
	return d.ok("DeleteNat", nil)
}

func (d *stubDriver) SettingFWPolicy(_, _ string,
	_ map[string]interface{}) (*nwaapi.WorkflowResult, error) {
	return d.ok("SettingFWPolicy", nil)
}

func (d *stubDriver) CreateTenantLB(_, _, _, _, _ string) (*nwaapi.WorkflowResult, error) {
	return d.ok("CreateTenantLB", map[string]interface{}{"LBName": "LB5"})
}

func (d *stubDriver) UpdateTenantLB(_, _ string,
	_ []nwaapi.LBVlanAction) (*nwaapi.WorkflowResult, error) {
	return d.ok("UpdateTenantLB", nil)
}

func (d *stubDriver) DeleteTenantLB(_, _, _, _ string) (*nwaapi.WorkflowResult, error) {
	return d.ok("DeleteTenantLB", nil)
}

func (d *stubDriver) SettingLBPolicy(_, _, _ string,
	_ map[string]interface{}) (*nwaapi.WorkflowResult, error) {
	return d.ok("SettingLBPolicy", nil)
}

func testConfig() *AgentConfig {
	return &AgentConfig{
		BaseTopic:     "nwa-agent",
		TopicPoolSize: 4,
		ResourceGroups: []ResourceGroupEntry{
			{PhysicalNetwork: "physnet1", ResourceGroupName: testGroup},
		},
	}
}

func newTestAdapter() (*EventAdapter, *stubDriver, *proxy.AgentProxy) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	driver := &stubDriver{}
	p := proxy.NewAgentProxy(bindings.NewMemStore(), driver, log)
	config := testConfig()
	topics := NewTopicPool(config.BaseTopic, config.TopicPoolSize,
		defaultTopicFactory)
	return NewEventAdapter(config, p, topics, log), driver, p
}

func portInfo(owner string) *proxy.NwaInfo {
	info := &proxy.NwaInfo{
		TenantID:        testTenant,
		NwaTenantID:     testNwaTenant,
		PhysicalNetwork: "physnet1",
	}
	info.Network.ID = testNet
	info.Network.Name = "net100"
	info.Network.VlanType = "BusinessVLAN"
	info.Subnet.NetAddr = "192.168.100.0"
	info.Subnet.Mask = "24"
	info.Device.ID = testDev
	info.Device.Owner = owner
	info.Port.IPAddress = "192.168.100.102"
	info.Port.MacAddress = "fa:16:3e:1b:a1:f1"
	return info
}

func TestCreatePortDispatchesComputeToGeneralDev(t *testing.T) {
	adapter, driver, p := newTestAdapter()
	p.Ready().Notify(testDev, testNet)

	err := adapter.CreatePortPrecommit(portInfo("compute:nova"))
	assert.Nil(t, err)
	assert.Equal(t, 1, driver.count("CreateGeneralDev"))
	assert.Equal(t, 1, adapter.topics.Size())
}

func TestCreatePortDispatchesRouterToTenantFW(t *testing.T) {
	adapter, driver, _ := newTestAdapter()

	err := adapter.CreatePortPrecommit(portInfo(proxy.OwnerRouterInterface))
	assert.Nil(t, err)
	assert.Equal(t, 1, driver.count("CreateTenantFW"))
	assert.Equal(t, 0, driver.count("CreateGeneralDev"))
}

func TestCreatePortIgnoresFloatingIP(t *testing.T) {
	adapter, driver, _ := newTestAdapter()

	err := adapter.CreatePortPrecommit(portInfo(proxy.OwnerFloatingIP))
	assert.Nil(t, err)
	assert.Equal(t, 0, len(driver.calls))
}

func TestCreatePortRejectsUnknownOwner(t *testing.T) {
	adapter, driver, _ := newTestAdapter()

	err := adapter.CreatePortPrecommit(portInfo("network:router_ha_interface"))
	assert.NotNil(t, err)
	assert.Equal(t, 0, len(driver.calls))
}

func TestDeletePortRetiresTopicWithBinding(t *testing.T) {
	adapter, driver, p := newTestAdapter()
	p.Ready().Notify(testDev, testNet)

	assert.Nil(t, adapter.CreatePortPrecommit(portInfo("compute:nova")))
	assert.Equal(t, 1, adapter.topics.Size())

	assert.Nil(t, adapter.DeletePortPrecommit(portInfo("compute:nova")))
	assert.Equal(t, 1, driver.count("DeleteGeneralDev"))
	assert.Equal(t, 0, adapter.topics.Size())
}

func TestUpdatePortUnchangedIsNoop(t *testing.T) {
	adapter, driver, p := newTestAdapter()
	p.Ready().Notify(testDev, testNet)

	info := portInfo("compute:nova")
	assert.Nil(t, adapter.CreatePortPrecommit(info))
	calls := len(driver.calls)

	assert.Nil(t, adapter.UpdatePortPrecommit(info, portInfo("compute:nova")))
	assert.Equal(t, calls, len(driver.calls))
}

func TestUpdatePortAddressChangeReplaysAttachment(t *testing.T) {
	adapter, driver, p := newTestAdapter()
	p.Ready().Notify(testDev, testNet)

	info := portInfo("compute:nova")
	assert.Nil(t, adapter.CreatePortPrecommit(info))

	p.Ready().Notify(testDev, testNet)
	updated := portInfo("compute:nova")
	updated.Port.IPAddress = "192.168.100.103"
	assert.Nil(t, adapter.UpdatePortPrecommit(info, updated))
	assert.Equal(t, 1, driver.count("DeleteGeneralDev"))
	assert.Equal(t, 2, driver.count("CreateGeneralDev"))
}

func TestResolveGroupsUnknownPhysnet(t *testing.T) {
	adapter, driver, _ := newTestAdapter()

	info := portInfo("compute:nova")
	info.PhysicalNetwork = "physnet9"
	err := adapter.CreatePortPrecommit(info)
	assert.NotNil(t, err)
	assert.Equal(t, 0, len(driver.calls))
}

func TestTryToBindSegmentForAgent(t *testing.T) {
	adapter, _, _ := newTestAdapter()

	assert.True(t, adapter.TryToBindSegmentForAgent("vlan", "physnet1"))
	assert.False(t, adapter.TryToBindSegmentForAgent("vlan", "physnet9"))
	assert.False(t, adapter.TryToBindSegmentForAgent("vxlan", "physnet1"))
}
