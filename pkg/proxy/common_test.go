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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openstack-archive/networking-nec-sub001/pkg/bindings"
	"github.com/openstack-archive/networking-nec-sub001/pkg/nwaapi"
)

const (
	testTenant    = "844eb55f21e84a289e9c22098d387e5d"
	testNwaTenant = "DC1_844eb55f21e84a289e9c22098d387e5d"
	testGroup     = "OpenStack/DC1/APP"
	testGroupNW   = "OpenStack/DC1/APP"
	testNet       = "3c9d3b3b-7d2d-4c2e-8e35-6eb51d7d0c97"
	testNet2      = "9f38cfca-07b9-4a60-8bb0-4e7b9a84a1c2"
	testDev       = "e56ef9aa-96f0-4b9f-9b8a-8bbf2e7d0c11"
	testDev2      = "2d804db2-5bfc-4f59-b142-2bfc4700dcd8"
	testRouter    = "6198dc28-0b39-4f13-9e27-f6e93e3b8c65"
	testFWName    = "TFW8"
	testLBName    = "LB5"
)

type driverCall struct {
	name string
	args []string
}

// fakeDriver records every vendor operation and answers with canned
// workflow results.
type fakeDriver struct {
	calls []driverCall
	fail  map[string]bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{fail: make(map[string]bool)}
}

func (f *fakeDriver) names() []string {
	names := make([]string, len(f.calls))
	for i, c := range f.calls {
		names[i] = c.name
	}
	return names
}

func (f *fakeDriver) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func (f *fakeDriver) result(name string,
	data map[string]interface{}) (*nwaapi.WorkflowResult, error) {
	if f.fail[name] {
		return &nwaapi.WorkflowResult{
			HTTPStatus: 200,
			Status:     nwaapi.StatusFailed,
			ResultData: map[string]interface{}{
				"ErrorMessage": "ErrorNumber=254",
			},
		}, nil
	}
	return &nwaapi.WorkflowResult{
		HTTPStatus: 200,
		Status:     nwaapi.StatusSucceed,
		ResultData: data,
	}, nil
}

func (f *fakeDriver) record(name string, args ...string) {
	f.calls = append(f.calls, driverCall{name: name, args: args})
}

func (f *fakeDriver) CreateTenant(nwaTenantID string) (int, map[string]interface{}, error) {
	f.record("CreateTenant", nwaTenantID)
	return 200, nil, nil
}

func (f *fakeDriver) DeleteTenant(nwaTenantID string) (int, map[string]interface{}, error) {
	f.record("DeleteTenant", nwaTenantID)
	return 200, nil, nil
}

func (f *fakeDriver) CreateTenantNW(nwaTenantID, groupNW string) (*nwaapi.WorkflowResult, error) {
	f.record("CreateTenantNW", nwaTenantID, groupNW)
	return f.result("CreateTenantNW", nil)
}

func (f *fakeDriver) DeleteTenantNW(nwaTenantID string) (*nwaapi.WorkflowResult, error) {
	f.record("DeleteTenantNW", nwaTenantID)
	return f.result("DeleteTenantNW", nil)
}

func (f *fakeDriver) CreateVlan(nwaTenantID, addr, mask, name,
	vlanType string) (*nwaapi.WorkflowResult, error) {
	f.record("CreateVlan", nwaTenantID, addr, mask, name, vlanType)
	return f.result("CreateVlan", map[string]interface{}{
		"LogicalNWName": "LNW_BusinessVLAN_100",
		"VlanID":        "300",
	})
}

func (f *fakeDriver) DeleteVlan(nwaTenantID, name,
	vlanType string) (*nwaapi.WorkflowResult, error) {
	f.record("DeleteVlan", nwaTenantID, name, vlanType)
	return f.result("DeleteVlan", nil)
}

func (f *fakeDriver) CreateGeneralDev(nwaTenantID, group, name, vlanType,
	portType string) (*nwaapi.WorkflowResult, error) {
	f.record("CreateGeneralDev", nwaTenantID, group, name, vlanType, portType)
	return f.result("CreateGeneralDev", nil)
}

func (f *fakeDriver) DeleteGeneralDev(nwaTenantID, group, name,
	vlanType string) (*nwaapi.WorkflowResult, error) {
	f.record("DeleteGeneralDev", nwaTenantID, group, name, vlanType)
	return f.result("DeleteGeneralDev", nil)
}

func (f *fakeDriver) CreateTenantFW(nwaTenantID, group, addr, name,
	vlanType string) (*nwaapi.WorkflowResult, error) {
	f.record("CreateTenantFW", nwaTenantID, group, addr, name, vlanType)
	return f.result("CreateTenantFW", map[string]interface{}{
		"TenantFWName": testFWName,
	})
}

func (f *fakeDriver) UpdateTenantFW(nwaTenantID, device, addr, name,
	vlanType, connect string) (*nwaapi.WorkflowResult, error) {
	f.record("UpdateTenantFW", nwaTenantID, device, addr, name, vlanType, connect)
	return f.result("UpdateTenantFW", nil)
}

func (f *fakeDriver) DeleteTenantFW(nwaTenantID, device, name,
	vlanType string) (*nwaapi.WorkflowResult, error) {
	f.record("DeleteTenantFW", nwaTenantID, device, name, vlanType)
	return f.result("DeleteTenantFW", nil)
}

func (f *fakeDriver) SettingNat(nwaTenantID, device, name, vlanType,
	localIP, globalIP string) (*nwaapi.WorkflowResult, error) {
	f.record("SettingNat", nwaTenantID, device, name, vlanType, localIP, globalIP)
	return f.result("SettingNat", nil)
}

func (f *fakeDriver) DeleteNat(nwaTenantID, device, name, vlanType,
	localIP, globalIP string) (*nwaapi.WorkflowResult, error) {
	f.record("DeleteNat", nwaTenantID, device, name, vlanType, localIP, globalIP)
	return f.result("DeleteNat", nil)
}

func (f *fakeDriver) SettingFWPolicy(nwaTenantID, device string,
	policy map[string]interface{}) (*nwaapi.WorkflowResult, error) {
	f.record("SettingFWPolicy", nwaTenantID, device)
	return f.result("SettingFWPolicy", map[string]interface{}{
		"DeletePolicy": []interface{}{},
	})
}

func (f *fakeDriver) CreateTenantLB(nwaTenantID, group, addr, name,
	vlanType string) (*nwaapi.WorkflowResult, error) {
	f.record("CreateTenantLB", nwaTenantID, group, addr, name, vlanType)
	return f.result("CreateTenantLB", map[string]interface{}{
		"LBName": testLBName,
	})
}

func (f *fakeDriver) UpdateTenantLB(nwaTenantID, device string,
	actions []nwaapi.LBVlanAction) (*nwaapi.WorkflowResult, error) {
	args := []string{nwaTenantID, device}
	for _, a := range actions {
		args = append(args, a.Action, a.VlanLogicalName)
	}
	f.record("UpdateTenantLB", args...)
	return f.result("UpdateTenantLB", nil)
}

func (f *fakeDriver) DeleteTenantLB(nwaTenantID, device, name,
	vlanType string) (*nwaapi.WorkflowResult, error) {
	f.record("DeleteTenantLB", nwaTenantID, device, name, vlanType)
	return f.result("DeleteTenantLB", nil)
}

func (f *fakeDriver) SettingLBPolicy(nwaTenantID, device,
	operation string, policy map[string]interface{}) (*nwaapi.WorkflowResult, error) {
	f.record("SettingLBPolicy", nwaTenantID, device, operation)
	return f.result("SettingLBPolicy", nil)
}

type hookRecorder struct {
	events []string
}

func (h *hookRecorder) FirewallCreated(*FirewallEvent) error {
	h.events = append(h.events, "created")
	return nil
}

func (h *hookRecorder) FirewallConnected(*FirewallEvent) error {
	h.events = append(h.events, "connected")
	return nil
}

func (h *hookRecorder) FirewallDisconnected(*FirewallEvent) error {
	h.events = append(h.events, "disconnected")
	return nil
}

func (h *hookRecorder) FirewallDeleted(*FirewallEvent) error {
	h.events = append(h.events, "deleted")
	return nil
}

func newTestProxy() (*AgentProxy, *fakeDriver, bindings.Store) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	driver := newFakeDriver()
	store := bindings.NewMemStore()
	p := NewAgentProxy(store, driver, log)
	p.readyTimeout = time.Millisecond
	return p, driver, store
}

func testInfo(networkID, deviceID, owner string) *NwaInfo {
	info := &NwaInfo{
		TenantID:            testTenant,
		NwaTenantID:         testNwaTenant,
		PhysicalNetwork:     "physnet1",
		ResourceGroupName:   testGroup,
		ResourceGroupNameNW: testGroupNW,
	}
	info.Network.ID = networkID
	info.Network.Name = "net100"
	info.Network.VlanType = "BusinessVLAN"
	info.Subnet.ID = "7dd1f217-8e53-45f6-b8ac-462b44ea1c09"
	info.Subnet.NetAddr = "192.168.100.0"
	info.Subnet.Mask = "24"
	info.Device.ID = deviceID
	info.Device.Owner = owner
	info.Port.IPAddress = "192.168.100.102"
	info.Port.MacAddress = "fa:16:3e:1b:a1:f1"
	return info
}
