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

	"github.com/sirupsen/logrus"

	"github.com/openstack-archive/networking-nec-sub001/pkg/bindings"
	"github.com/openstack-archive/networking-nec-sub001/pkg/tenantlock"
)

const opCreateGeneralDev = "CreateGeneralDev"

// generalDevBody is the canonical request identity used for the
// per-tenant operation history.  Create and delete of the same device
// attachment produce the same body, which is what lets a delete fold
// its paired create.
func generalDevBody(nwaTenantID, resourceGroupName, networkID,
	vlanType string) string {
	raw, _ := json.Marshal(map[string]string{
		"TenantID":          nwaTenantID,
		"ResourceGroupName": resourceGroupName,
		"VlanLogicalName":   networkID,
		"VlanType":          vlanType,
	})
	return string(raw)
}

// EnsureL2Network provisions the tenant, the tenant network and the
// network's VLAN on NWA if any of them is missing, and persists the
// resulting binding.  It is the common prefix of every attach
// operation and is also exposed for network-precommit events.
func (p *AgentProxy) EnsureL2Network(info *NwaInfo) error {
	handle := p.locks.Acquire(info.TenantID)
	defer handle.Release()

	state, existed, err := p.loadState(info.TenantID, info.NwaTenantID)
	if err != nil {
		return err
	}
	if err := p.ensureL2(state, info, bindings.DeviceTypeGD); err != nil {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed, err)
	}
	return p.saveState(state, existed)
}

func (p *AgentProxy) ensureL2(state *bindings.TenantState, info *NwaInfo,
	deviceType string) error {
	if err := p.ensureTenant(state); err != nil {
		return err
	}
	if err := p.ensureTenantNW(state, info.ResourceGroupNameNW); err != nil {
		return err
	}
	_, err := p.ensureVlan(state, info, deviceType)
	return err
}

// CreateGeneralDev attaches a general device (compute instance port,
// DHCP port) to the network's GD segment.  The vendor call is issued
// only for the first consumer of the segment; later attachments just
// raise the reference count.  A repeated event for an already attached
// device changes nothing.
func (p *AgentProxy) CreateGeneralDev(info *NwaInfo) error {
	handle := p.locks.Acquire(info.TenantID)
	defer handle.Release()

	state, existed, err := p.loadState(info.TenantID, info.NwaTenantID)
	if err != nil {
		return err
	}
	err = p.createGeneralDev(state, info)
	if err != nil {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed, err)
	}
	return p.saveState(state, existed)
}

func (p *AgentProxy) createGeneralDev(state *bindings.TenantState,
	info *NwaInfo) error {
	ik := bindings.InterfaceKey{DeviceID: info.Device.ID, NetworkID: info.Network.ID}
	if _, dup := state.Interfaces[ik]; dup {
		// duplicated event, the device is already attached
		p.log.WithFields(logrus.Fields{
			"tenant":  info.TenantID,
			"device":  info.Device.ID,
			"network": info.Network.ID,
		}).Info("CreateGeneralDev: device already attached")
		return nil
	}
	if err := p.ensureL2(state, info, bindings.DeviceTypeGD); err != nil {
		return err
	}
	vk := bindings.VlanKey{
		NetworkID:     info.Network.ID,
		ResourceGroup: info.ResourceGroupName,
		DeviceType:    bindings.DeviceTypeGD,
	}
	rec := state.Vlans[vk]

	if rec.RefCount == 0 {
		body := generalDevBody(info.NwaTenantID, info.ResourceGroupName,
			info.Network.ID, info.Network.VlanType)
		if _, hit := p.locks.LookupSuccess(info.TenantID,
			opCreateGeneralDev, info.NwaTenantID, body); hit {
			p.log.WithFields(logrus.Fields{
				"tenant":  info.TenantID,
				"network": info.Network.ID,
			}).Info("CreateGeneralDev answered from operation history")
		} else {
			res, err := p.nwa.CreateGeneralDev(info.NwaTenantID,
				info.ResourceGroupName, vlanName(state, info.Network.ID),
				info.Network.VlanType, info.PortType)
			if err != nil {
				return p.failf(state, "CreateGeneralDev: %v", err)
			}
			if !res.Succeeded() {
				return p.workflowErr(state, "CreateGeneralDev", res)
			}
			p.locks.RecordSuccess(info.TenantID, tenantlock.HistoryEntry{
				Operation: opCreateGeneralDev,
				URL:       info.NwaTenantID,
				Body:      body,
				Code:      res.HTTPStatus,
				Response:  res.ResultData,
			})
			if !p.ready.Wait(info.Device.ID, info.Network.ID, p.readyTimeout) {
				p.log.WithFields(logrus.Fields{
					"device":  info.Device.ID,
					"network": info.Network.ID,
				}).Warning("No device ready ack, continuing")
			}
		}
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
		State:      bindings.StateAttached,
		IPAddress:  info.Port.IPAddress,
		MacAddress: info.Port.MacAddress,
	}
	return nil
}

// DeleteGeneralDev detaches a general device.  The vendor call is
// issued only when the last consumer of the GD segment goes away; the
// cascade then strips the VLAN, the tenant network and finally the
// tenant itself once nothing is left.
func (p *AgentProxy) DeleteGeneralDev(info *NwaInfo) error {
	handle := p.locks.Acquire(info.TenantID)
	defer handle.Release()

	state, existed, err := p.loadState(info.TenantID, info.NwaTenantID)
	if err != nil {
		return err
	}
	if !existed {
		return p.failf(state, "no binding for tenant %s", info.TenantID)
	}
	deleted, err := p.deleteGeneralDev(state, info)
	if err != nil {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed, err)
	}
	if deleted {
		return nil
	}
	return p.saveState(state, existed)
}

// deleteGeneralDev reports true when the whole binding row was removed
// by the teardown cascade.
func (p *AgentProxy) deleteGeneralDev(state *bindings.TenantState,
	info *NwaInfo) (bool, error) {
	ik := bindings.InterfaceKey{DeviceID: info.Device.ID, NetworkID: info.Network.ID}
	if _, ok := state.Interfaces[ik]; !ok {
		return false, p.failf(state, "device %s has no interface on network %s",
			info.Device.ID, info.Network.ID)
	}
	vk := bindings.VlanKey{
		NetworkID:     info.Network.ID,
		ResourceGroup: info.ResourceGroupName,
		DeviceType:    bindings.DeviceTypeGD,
	}
	rec, ok := state.Vlans[vk]
	if !ok {
		return false, p.failf(state, "no GD segment for network %s",
			info.Network.ID)
	}

	if rec.RefCount > 1 {
		rec.RefCount--
		p.dropInterface(state, ik)
		return false, nil
	}

	rec.State = bindings.StateDetaching
	body := generalDevBody(info.NwaTenantID, info.ResourceGroupName,
		info.Network.ID, info.Network.VlanType)
	// the paired create, if still cached, must not answer a retry
	// after this point
	p.locks.FoldCreate(info.TenantID, opCreateGeneralDev,
		info.NwaTenantID, body)

	res, err := p.nwa.DeleteGeneralDev(info.NwaTenantID,
		info.ResourceGroupName, vlanName(state, info.Network.ID),
		info.Network.VlanType)
	if err != nil {
		return false, p.failf(state, "DeleteGeneralDev: %v", err)
	}
	if !res.Succeeded() {
		return false, p.workflowErr(state, "DeleteGeneralDev", res)
	}

	delete(state.Vlans, vk)
	p.dropInterface(state, ik)
	if err := p.stripNetwork(state, info.Network.ID,
		info.Network.VlanType); err != nil {
		return false, err
	}
	if state.Drained() {
		return true, p.teardownTenant(state)
	}
	return false, nil
}

// dropInterface removes an interface record and the owning device
// record once its last interface is gone.
func (p *AgentProxy) dropInterface(state *bindings.TenantState,
	ik bindings.InterfaceKey) {
	delete(state.Interfaces, ik)
	for other := range state.Interfaces {
		if other.DeviceID == ik.DeviceID {
			return
		}
	}
	delete(state.Devices, ik.DeviceID)
}
