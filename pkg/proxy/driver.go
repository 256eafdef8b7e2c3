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
	"github.com/openstack-archive/networking-nec-sub001/pkg/nwaapi"
)

// Driver is the NWA operation surface the reconciler depends on,
// satisfied by the nwaapi client and by test fakes.
type Driver interface {
	CreateTenant(nwaTenantID string) (int, map[string]interface{}, error)
	DeleteTenant(nwaTenantID string) (int, map[string]interface{}, error)

	CreateTenantNW(nwaTenantID, resourceGroupNameNW string) (*nwaapi.WorkflowResult, error)
	DeleteTenantNW(nwaTenantID string) (*nwaapi.WorkflowResult, error)
	CreateVlan(nwaTenantID, subnetAddress, subnetMask, vlanLogicalName,
		vlanType string) (*nwaapi.WorkflowResult, error)
	DeleteVlan(nwaTenantID, vlanLogicalName, vlanType string) (*nwaapi.WorkflowResult, error)
	CreateGeneralDev(nwaTenantID, resourceGroupName, vlanLogicalName,
		vlanType, portType string) (*nwaapi.WorkflowResult, error)
	DeleteGeneralDev(nwaTenantID, resourceGroupName, vlanLogicalName,
		vlanType string) (*nwaapi.WorkflowResult, error)

	CreateTenantFW(nwaTenantID, resourceGroupName, deviceAddress,
		vlanLogicalName, vlanType string) (*nwaapi.WorkflowResult, error)
	UpdateTenantFW(nwaTenantID, deviceName, deviceAddress,
		vlanLogicalName, vlanType, connect string) (*nwaapi.WorkflowResult, error)
	DeleteTenantFW(nwaTenantID, deviceName, vlanLogicalName,
		vlanType string) (*nwaapi.WorkflowResult, error)
	SettingNat(nwaTenantID, deviceName, vlanLogicalName, vlanType,
		localIP, globalIP string) (*nwaapi.WorkflowResult, error)
	DeleteNat(nwaTenantID, deviceName, vlanLogicalName, vlanType,
		localIP, globalIP string) (*nwaapi.WorkflowResult, error)
	SettingFWPolicy(nwaTenantID, deviceName string,
		policy map[string]interface{}) (*nwaapi.WorkflowResult, error)

	CreateTenantLB(nwaTenantID, resourceGroupName, deviceAddress,
		vlanLogicalName, vlanType string) (*nwaapi.WorkflowResult, error)
	UpdateTenantLB(nwaTenantID, deviceName string,
		actions []nwaapi.LBVlanAction) (*nwaapi.WorkflowResult, error)
	DeleteTenantLB(nwaTenantID, deviceName, vlanLogicalName,
		vlanType string) (*nwaapi.WorkflowResult, error)
	SettingLBPolicy(nwaTenantID, deviceName, operation string,
		policy map[string]interface{}) (*nwaapi.WorkflowResult, error)
}

// clientDriver flattens the nwaapi sub-clients onto the Driver
// surface.
type clientDriver struct {
	client *nwaapi.Client
}

func NewDriver(client *nwaapi.Client) Driver {
	return &clientDriver{client: client}
}

func (d *clientDriver) CreateTenant(nwaTenantID string) (int, map[string]interface{}, error) {
	return d.client.Tenant.Create(nwaTenantID)
}

func (d *clientDriver) DeleteTenant(nwaTenantID string) (int, map[string]interface{}, error) {
	return d.client.Tenant.Delete(nwaTenantID)
}

func (d *clientDriver) CreateTenantNW(nwaTenantID, resourceGroupNameNW string) (*nwaapi.WorkflowResult, error) {
	return d.client.L2.CreateTenantNW(nwaTenantID, resourceGroupNameNW)
}

func (d *clientDriver) DeleteTenantNW(nwaTenantID string) (*nwaapi.WorkflowResult, error) {
	return d.client.L2.DeleteTenantNW(nwaTenantID)
}

func (d *clientDriver) CreateVlan(nwaTenantID, subnetAddress, subnetMask,
	vlanLogicalName, vlanType string) (*nwaapi.WorkflowResult, error) {
	return d.client.L2.CreateVlan(nwaTenantID, subnetAddress, subnetMask,
		vlanLogicalName, vlanType)
}

func (d *clientDriver) DeleteVlan(nwaTenantID, vlanLogicalName,
	vlanType string) (*nwaapi.WorkflowResult, error) {
	return d.client.L2.DeleteVlan(nwaTenantID, vlanLogicalName, vlanType)
}

func (d *clientDriver) CreateGeneralDev(nwaTenantID, resourceGroupName,
	vlanLogicalName, vlanType, portType string) (*nwaapi.WorkflowResult, error) {
	return d.client.L2.CreateGeneralDev(nwaTenantID, resourceGroupName,
		vlanLogicalName, vlanType, portType)
}

func (d *clientDriver) DeleteGeneralDev(nwaTenantID, resourceGroupName,
	vlanLogicalName, vlanType string) (*nwaapi.WorkflowResult, error) {
	return d.client.L2.DeleteGeneralDev(nwaTenantID, resourceGroupName,
		vlanLogicalName, vlanType)
}

func (d *clientDriver) CreateTenantFW(nwaTenantID, resourceGroupName,
	deviceAddress, vlanLogicalName, vlanType string) (*nwaapi.WorkflowResult, error) {
	return d.client.L3.CreateTenantFW(nwaTenantID, resourceGroupName,
		deviceAddress, vlanLogicalName, vlanType)
}

func (d *clientDriver) UpdateTenantFW(nwaTenantID, deviceName,
	deviceAddress, vlanLogicalName, vlanType, connect string) (*nwaapi.WorkflowResult, error) {
	return d.client.L3.UpdateTenantFW(nwaTenantID, deviceName,
		deviceAddress, vlanLogicalName, vlanType, connect)
}

func (d *clientDriver) DeleteTenantFW(nwaTenantID, deviceName,
	vlanLogicalName, vlanType string) (*nwaapi.WorkflowResult, error) {
	return d.client.L3.DeleteTenantFW(nwaTenantID, deviceName,
		vlanLogicalName, vlanType)
}

func (d *clientDriver) SettingNat(nwaTenantID, deviceName,
	vlanLogicalName, vlanType, localIP, globalIP string) (*nwaapi.WorkflowResult, error) {
	return d.client.L3.SettingNat(nwaTenantID, deviceName,
		vlanLogicalName, vlanType, localIP, globalIP)
}

func (d *clientDriver) DeleteNat(nwaTenantID, deviceName,
	vlanLogicalName, vlanType, localIP, globalIP string) (*nwaapi.WorkflowResult, error) {
	return d.client.L3.DeleteNat(nwaTenantID, deviceName,
		vlanLogicalName, vlanType, localIP, globalIP)
}

func (d *clientDriver) SettingFWPolicy(nwaTenantID, deviceName string,
	policy map[string]interface{}) (*nwaapi.WorkflowResult, error) {
	return d.client.L3.SettingFWPolicy(nwaTenantID, deviceName, policy)
}

func (d *clientDriver) CreateTenantLB(nwaTenantID, resourceGroupName,
	deviceAddress, vlanLogicalName, vlanType string) (*nwaapi.WorkflowResult, error) {
	return d.client.LBaaS.CreateTenantLB(nwaTenantID, resourceGroupName,
		deviceAddress, vlanLogicalName, vlanType)
}

func (d *clientDriver) UpdateTenantLB(nwaTenantID, deviceName string,
	actions []nwaapi.LBVlanAction) (*nwaapi.WorkflowResult, error) {
	return d.client.LBaaS.UpdateTenantLB(nwaTenantID, deviceName, actions)
}

func (d *clientDriver) DeleteTenantLB(nwaTenantID, deviceName,
	vlanLogicalName, vlanType string) (*nwaapi.WorkflowResult, error) {
	return d.client.LBaaS.DeleteTenantLB(nwaTenantID, deviceName,
		vlanLogicalName, vlanType)
}

func (d *clientDriver) SettingLBPolicy(nwaTenantID, deviceName,
	operation string, policy map[string]interface{}) (*nwaapi.WorkflowResult, error) {
	return d.client.LBaaS.SettingLBPolicy(nwaTenantID, deviceName,
		operation, policy)
}
