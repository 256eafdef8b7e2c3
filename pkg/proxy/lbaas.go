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
	"encoding/json"

	"github.com/openstack-archive/networking-nec-sub001/pkg/bindings"
	"github.com/openstack-archive/networking-nec-sub001/pkg/nwaapi"
)

// VipInfo describes one LBaaS VIP.
type VipInfo struct {
	VipID        string
	Address      string
	ProtocolPort string
}

// CreateTenantLB attaches a VIP to the network's load balancer
// segment.  The first VIP provisions the tenant load balancer device;
// further VIPs on other networks reconfigure it to also carry their
// VLAN.
func (p *AgentProxy) CreateTenantLB(info *NwaInfo, vip *VipInfo) error {
	handle := p.locks.Acquire(info.TenantID)
	defer handle.Release()

	state, existed, err := p.loadState(info.TenantID, info.NwaTenantID)
	if err != nil {
		return err
	}
	if err := p.createTenantLB(state, info, vip); err != nil {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed, err)
	}
	return p.saveState(state, existed)
}

func (p *AgentProxy) createTenantLB(state *bindings.TenantState,
	info *NwaInfo, vip *VipInfo) error {
	if _, dup := state.LBs[vip.VipID]; dup {
		// duplicated event, the VIP is already recorded
		p.log.WithField("vip", vip.VipID).Info(
			"CreateTenantLB: VIP already attached")
		return nil
	}
	deviceType := bindings.LBDeviceType(info.Network.VlanType)
	if err := p.ensureL2(state, info, deviceType); err != nil {
		return err
	}
	vk := bindings.VlanKey{
		NetworkID:     info.Network.ID,
		ResourceGroup: info.ResourceGroupName,
		DeviceType:    deviceType,
	}
	rec := state.Vlans[vk]

	if lbName := lbDeviceName(state); lbName == "" {
		res, err := p.nwa.CreateTenantLB(info.NwaTenantID,
			info.ResourceGroupName, vip.Address,
			vlanName(state, info.Network.ID), info.Network.VlanType)
		if err != nil {
			return p.failf(state, "CreateTenantLB: %v", err)
		}
		if !res.Succeeded() {
			return p.workflowErr(state, "CreateTenantLB", res)
		}
		name := resultString(res, "LBName")
		if name == "" {
			return p.failf(state, "CreateTenantLB: no LBName in result")
		}
		state.Devices[name] = &bindings.DeviceRecord{Owner: OwnerLoadBalancer}
	} else if rec.RefCount == 0 {
		// existing device, new VLAN
		res, err := p.nwa.UpdateTenantLB(info.NwaTenantID, lbName,
			[]nwaapi.LBVlanAction{{
				Action:          nwaapi.ConnectDevice,
				VlanLogicalName: vlanName(state, info.Network.ID),
				VlanType:        info.Network.VlanType,
				DeviceAddress:   vip.Address,
			}})
		if err != nil {
			return p.failf(state, "UpdateTenantLB: %v", err)
		}
		if !res.Succeeded() {
			return p.workflowErr(state, "UpdateTenantLB", res)
		}
	}
	rec.RefCount++
	rec.State = bindings.StateAttached

	state.LBs[vip.VipID] = &bindings.LBRecord{
		NetworkID:    info.Network.ID,
		Address:      vip.Address,
		ProtocolPort: vip.ProtocolPort,
	}
	return nil
}

// DeleteTenantLB detaches a VIP.  The last VIP of a segment
// disconnects the VLAN from the device; the last VIP overall deletes
// the device and cascades the teardown.
func (p *AgentProxy) DeleteTenantLB(info *NwaInfo, vipID string) error {
	handle := p.locks.Acquire(info.TenantID)
	defer handle.Release()

	state, existed, err := p.loadState(info.TenantID, info.NwaTenantID)
	if err != nil {
		return err
	}
	if !existed {
		return p.failf(state, "no binding for tenant %s", info.TenantID)
	}
	deleted, err := p.deleteTenantLB(state, info, vipID)
	if err != nil {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed, err)
	}
	if deleted {
		return nil
	}
	return p.saveState(state, existed)
}

func (p *AgentProxy) deleteTenantLB(state *bindings.TenantState,
	info *NwaInfo, vipID string) (bool, error) {
	lb, ok := state.LBs[vipID]
	if !ok {
		return false, p.failf(state, "no VIP %s recorded", vipID)
	}
	lbName := lbDeviceName(state)
	if lbName == "" {
		return false, p.failf(state, "tenant %s has no load balancer device",
			info.TenantID)
	}
	deviceType := bindings.LBDeviceType(info.Network.VlanType)
	vk := bindings.VlanKey{
		NetworkID:     lb.NetworkID,
		ResourceGroup: info.ResourceGroupName,
		DeviceType:    deviceType,
	}
	rec, ok := state.Vlans[vk]
	if !ok {
		return false, p.failf(state, "no LB segment for network %s", lb.NetworkID)
	}

	if rec.RefCount > 1 {
		rec.RefCount--
		delete(state.LBs, vipID)
		return false, nil
	}

	rec.State = bindings.StateDetaching
	lastVlan := lbSegmentCount(state) == 1
	if lastVlan {
		res, err := p.nwa.DeleteTenantLB(info.NwaTenantID, lbName,
			vlanName(state, lb.NetworkID), info.Network.VlanType)
		if err != nil {
			return false, p.failf(state, "DeleteTenantLB: %v", err)
		}
		if !res.Succeeded() {
			return false, p.workflowErr(state, "DeleteTenantLB", res)
		}
		p.ids.DropDevice(lbName)
		delete(state.Devices, lbName)
	} else {
		res, err := p.nwa.UpdateTenantLB(info.NwaTenantID, lbName,
			[]nwaapi.LBVlanAction{{
				Action:          nwaapi.DisconnectDevice,
				VlanLogicalName: vlanName(state, lb.NetworkID),
				VlanType:        info.Network.VlanType,
				DeviceAddress:   lb.Address,
			}})
		if err != nil {
			return false, p.failf(state, "UpdateTenantLB: %v", err)
		}
		if !res.Succeeded() {
			return false, p.workflowErr(state, "UpdateTenantLB", res)
		}
	}

	delete(state.Vlans, vk)
	delete(state.LBs, vipID)
	if err := p.stripNetwork(state, lb.NetworkID,
		info.Network.VlanType); err != nil {
		return false, err
	}
	if state.Drained() {
		return true, p.teardownTenant(state)
	}
	return false, nil
}

// lbSegmentCount counts VLAN segments attached to the load balancer
// device.
func lbSegmentCount(state *bindings.TenantState) int {
	count := 0
	for key := range state.Vlans {
		if len(key.DeviceType) > 3 && key.DeviceType[:3] == "LB_" {
			count++
		}
	}
	return count
}

// SettingLBPolicy pushes a load balancer policy operation (create,
// update or delete of pools, members and monitors) and records the
// policy snapshot in the tenant binding.
func (p *AgentProxy) SettingLBPolicy(info *NwaInfo, policyID, operation string,
	policy map[string]interface{}) error {
	handle := p.locks.Acquire(info.TenantID)
	defer handle.Release()

	state, existed, err := p.loadState(info.TenantID, info.NwaTenantID)
	if err != nil {
		return err
	}
	if !existed {
		return p.failf(state, "no binding for tenant %s", info.TenantID)
	}
	lbName := lbDeviceName(state)
	if lbName == "" {
		return p.failf(state, "tenant %s has no load balancer device",
			info.TenantID)
	}

	res, err := p.nwa.SettingLBPolicy(info.NwaTenantID, lbName,
		operation, policy)
	if err != nil {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed,
			p.failf(state, "SettingLBPolicy: %v", err))
	}
	if !res.Succeeded() {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed,
			p.workflowErr(state, "SettingLBPolicy", res))
	}

	snapshot, _ := json.Marshal(map[string]interface{}{
		"operation": operation,
		"policy":    policy,
	})
	state.Policies[policyID] = string(snapshot)
	return p.saveState(state, existed)
}
