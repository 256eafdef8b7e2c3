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

package nwaapi

// L2Client drives the tenant network, VLAN and general device
// workflows.  Field names in the request bodies are dictated by the
// NWA workflow definitions.
type L2Client struct {
	client *Client
}

func (l *L2Client) CreateTenantNW(nwaTenantID, resourceGroupNameNW string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":                     nwaTenantID,
		"CreateNW_DCResourceGroupName": resourceGroupNameNW,
		"CreateNW_OperationType":       "CreateTenantNW",
	}
	return l.client.workflow("CreateTenantNW", body)
}

func (l *L2Client) DeleteTenantNW(nwaTenantID string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID": nwaTenantID,
	}
	return l.client.workflow("DeleteTenantNW", body)
}

func (l *L2Client) CreateVlan(nwaTenantID, subnetAddress, subnetMask,
	vlanLogicalName, vlanType string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":                 nwaTenantID,
		"CreateNW_IPSubnetAddress1": subnetAddress,
		"CreateNW_IPSubnetMask1":    subnetMask,
		"CreateNW_VlanLogicalName1": vlanLogicalName,
		"CreateNW_VlanType1":        vlanType,
		"CreateNW_OperationType":    "CreateVLAN",
	}
	return l.client.workflow("CreateVLAN", body)
}

func (l *L2Client) DeleteVlan(nwaTenantID, vlanLogicalName,
	vlanType string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":                  nwaTenantID,
		"DeleteNW_VlanLogicalName1": vlanLogicalName,
		"DeleteNW_VlanType1":        vlanType,
	}
	return l.client.workflow("DeleteVLAN", body)
}

func (l *L2Client) CreateGeneralDev(nwaTenantID, resourceGroupName,
	vlanLogicalName, vlanType, portType string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":                     nwaTenantID,
		"CreateNW_DeviceType1":         "GD",
		"CreateNW_VlanLogicalName1":    vlanLogicalName,
		"CreateNW_VlanType1":           vlanType,
		"CreateNW_DCResourceGroupName": resourceGroupName,
	}
	if portType != "" {
		body["CreateNW_PortType1"] = portType
	}
	return l.client.workflow("CreateGeneralDev", body)
}

func (l *L2Client) DeleteGeneralDev(nwaTenantID, resourceGroupName,
	vlanLogicalName, vlanType string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":                     nwaTenantID,
		"DeleteNW_DeviceType1":         "GD",
		"DeleteNW_VlanLogicalName1":    vlanLogicalName,
		"DeleteNW_VlanType1":           vlanType,
		"DeleteNW_DCResourceGroupName": resourceGroupName,
	}
	return l.client.workflow("DeleteGeneralDev", body)
}
