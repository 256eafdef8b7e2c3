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
	"github.com/openstack-archive/networking-nec-sub001/pkg/bindings"
	"github.com/openstack-archive/networking-nec-sub001/pkg/nwaapi"
)

// CreateTenantFW attaches a router interface to the network's TFW
// segment.  The first interface provisions the tenant firewall
// device; further interfaces reconfigure it to also carry the new
// VLAN.
func (p *AgentProxy) CreateTenantFW(info *NwaInfo) error {
	handle := p.locks.Acquire(info.TenantID)
	defer handle.Release()

	state, existed, err := p.loadState(info.TenantID, info.NwaTenantID)
	if err != nil {
		return err
	}
	if err := p.createTenantFW(state, info); err != nil {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed, err)
	}
	return p.saveState(state, existed)
}

func (p *AgentProxy) createTenantFW(state *bindings.TenantState,
	info *NwaInfo) error {
	ik := bindings.InterfaceKey{DeviceID: info.Device.ID, NetworkID: info.Network.ID}
	if _, dup := state.Interfaces[ik]; dup {
		// duplicated event, the interface is already connected
		p.log.WithField("device", info.Device.ID).Info(
			"CreateTenantFW: interface already attached")
		return nil
	}
	if err := p.ensureL2(state, info, bindings.DeviceTypeTFW); err != nil {
		return err
	}
	vk := bindings.VlanKey{
		NetworkID:     info.Network.ID,
		ResourceGroup: info.ResourceGroupName,
		DeviceType:    bindings.DeviceTypeTFW,
	}
	rec := state.Vlans[vk]

	var fwName string
	var hook func(*FirewallEvent) error
	if existing := tenantFWName(state); existing == "" {
		res, err := p.nwa.CreateTenantFW(info.NwaTenantID,
			info.ResourceGroupName, info.Port.IPAddress,
			vlanName(state, info.Network.ID), info.Network.VlanType)
		if err != nil {
			return p.failf(state, "CreateTenantFW: %v", err)
		}
		if !res.Succeeded() {
			return p.workflowErr(state, "CreateTenantFW", res)
		}
		fwName = resultString(res, "TenantFWName")
		if fwName == "" {
			return p.failf(state, "CreateTenantFW: no TenantFWName in result")
		}
		hook = p.fwHooks.FirewallCreated
	} else {
		fwName = existing
		res, err := p.nwa.UpdateTenantFW(info.NwaTenantID, fwName,
			info.Port.IPAddress, vlanName(state, info.Network.ID),
			info.Network.VlanType, nwaapi.ConnectDevice)
		if err != nil {
			return p.failf(state, "UpdateTenantFW: %v", err)
		}
		if !res.Succeeded() {
			return p.workflowErr(state, "UpdateTenantFW", res)
		}
		hook = p.fwHooks.FirewallConnected
	}

	rec.RefCount++
	rec.State = bindings.StateAttached

	device := state.Devices[info.Device.ID]
	if device == nil {
		device = &bindings.DeviceRecord{}
		state.Devices[info.Device.ID] = device
	}
	device.Owner = info.Device.Owner
	device.PhysicalNetwork = info.PhysicalNetwork

	state.Interfaces[ik] = &bindings.InterfaceRecord{
		State:        bindings.StateAttached,
		IPAddress:    info.Port.IPAddress,
		MacAddress:   info.Port.MacAddress,
		TenantFWName: fwName,
	}

	if err := hook(&FirewallEvent{
		TenantID:     info.TenantID,
		NwaTenantID:  info.NwaTenantID,
		DeviceID:     info.Device.ID,
		NetworkID:    info.Network.ID,
		TenantFWName: fwName,
	}); err != nil {
		return p.failf(state, "firewall hook: %v", err)
	}
	return nil
}

// DeleteTenantFW detaches a router interface from the TFW segment.
// The last interface deletes the firewall device and cascades the
// teardown like DeleteGeneralDev does.
func (p *AgentProxy) DeleteTenantFW(info *NwaInfo) error {
	handle := p.locks.Acquire(info.TenantID)
	defer handle.Release()

	state, existed, err := p.loadState(info.TenantID, info.NwaTenantID)
	if err != nil {
		return err
	}
	if !existed {
		return p.failf(state, "no binding for tenant %s", info.TenantID)
	}
	deleted, err := p.deleteTenantFW(state, info)
	if err != nil {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed, err)
	}
	if deleted {
		return nil
	}
	return p.saveState(state, existed)
}

func (p *AgentProxy) deleteTenantFW(state *bindings.TenantState,
	info *NwaInfo) (bool, error) {
	ik := bindings.InterfaceKey{DeviceID: info.Device.ID, NetworkID: info.Network.ID}
	iface, ok := state.Interfaces[ik]
	if !ok || iface.TenantFWName == "" {
		return false, p.failf(state, "no firewall interface for device %s on %s",
			info.Device.ID, info.Network.ID)
	}
	vk := bindings.VlanKey{
		NetworkID:     info.Network.ID,
		ResourceGroup: info.ResourceGroupName,
		DeviceType:    bindings.DeviceTypeTFW,
	}
	rec, ok := state.Vlans[vk]
	if !ok {
		return false, p.failf(state, "no TFW segment for network %s",
			info.Network.ID)
	}
	fwName := iface.TenantFWName
	ev := &FirewallEvent{
		TenantID:     info.TenantID,
		NwaTenantID:  info.NwaTenantID,
		DeviceID:     info.Device.ID,
		NetworkID:    info.Network.ID,
		TenantFWName: fwName,
	}

	if rec.RefCount > 1 {
		res, err := p.nwa.UpdateTenantFW(info.NwaTenantID, fwName,
			iface.IPAddress, vlanName(state, info.Network.ID),
			info.Network.VlanType, nwaapi.DisconnectDevice)
		if err != nil {
			return false, p.failf(state, "UpdateTenantFW: %v", err)
		}
		if !res.Succeeded() {
			return false, p.workflowErr(state, "UpdateTenantFW", res)
		}
		rec.RefCount--
		p.dropInterface(state, ik)
		if err := p.fwHooks.FirewallDisconnected(ev); err != nil {
			return false, p.failf(state, "firewall hook: %v", err)
		}
		return false, nil
	}

	rec.State = bindings.StateDetaching
	res, err := p.nwa.DeleteTenantFW(info.NwaTenantID, fwName,
		vlanName(state, info.Network.ID), info.Network.VlanType)
	if err != nil {
		return false, p.failf(state, "DeleteTenantFW: %v", err)
	}
	if !res.Succeeded() {
		return false, p.workflowErr(state, "DeleteTenantFW", res)
	}
	p.ids.DropDevice(fwName)

	delete(state.Vlans, vk)
	p.dropInterface(state, ik)
	if err := p.fwHooks.FirewallDeleted(ev); err != nil {
		return false, p.failf(state, "firewall hook: %v", err)
	}
	if err := p.stripNetwork(state, info.Network.ID,
		info.Network.VlanType); err != nil {
		return false, err
	}
	if state.Drained() {
		return true, p.teardownTenant(state)
	}
	return false, nil
}

// SettingNat installs a floating ip translation on the tenant
// firewall.  A translation already recorded for the floating ip is
// rejected before any vendor call is made.
func (p *AgentProxy) SettingNat(info *NwaInfo, floatingID, floatingIP,
	fixedIP string) error {
	handle := p.locks.Acquire(info.TenantID)
	defer handle.Release()

	state, existed, err := p.loadState(info.TenantID, info.NwaTenantID)
	if err != nil {
		return err
	}
	if !existed {
		return p.failf(state, "no binding for tenant %s", info.TenantID)
	}
	if _, dup := state.Nats[floatingID]; dup {
		return p.failf(state, "NAT for floating ip %s already set", floatingID)
	}
	fwName := tenantFWName(state)
	if fwName == "" {
		return p.failf(state, "tenant %s has no firewall device", info.TenantID)
	}

	res, err := p.nwa.SettingNat(info.NwaTenantID, fwName,
		vlanName(state, info.Network.ID), info.Network.VlanType,
		fixedIP, floatingIP)
	if err != nil {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed,
			p.failf(state, "SettingNat: %v", err))
	}
	if !res.Succeeded() {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed,
			p.workflowErr(state, "SettingNat", res))
	}

	state.Nats[floatingID] = &bindings.NatRecord{
		DeviceID:   info.Device.ID,
		NetworkID:  info.Network.ID,
		FloatingIP: floatingIP,
		FixedIP:    fixedIP,
	}
	return p.saveState(state, existed)
}

// DeleteNat removes a floating ip translation.
func (p *AgentProxy) DeleteNat(info *NwaInfo, floatingID string) error {
	handle := p.locks.Acquire(info.TenantID)
	defer handle.Release()

	state, existed, err := p.loadState(info.TenantID, info.NwaTenantID)
	if err != nil {
		return err
	}
	if !existed {
		return p.failf(state, "no binding for tenant %s", info.TenantID)
	}
	nat, ok := state.Nats[floatingID]
	if !ok {
		return p.failf(state, "no NAT recorded for floating ip %s", floatingID)
	}
	fwName := tenantFWName(state)
	if fwName == "" {
		return p.failf(state, "tenant %s has no firewall device", info.TenantID)
	}

	res, err := p.nwa.DeleteNat(info.NwaTenantID, fwName,
		vlanName(state, nat.NetworkID), info.Network.VlanType,
		nat.FixedIP, nat.FloatingIP)
	if err != nil {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed,
			p.failf(state, "DeleteNat: %v", err))
	}
	if !res.Succeeded() {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed,
			p.workflowErr(state, "DeleteNat", res))
	}

	delete(state.Nats, floatingID)
	return p.saveState(state, existed)
}
