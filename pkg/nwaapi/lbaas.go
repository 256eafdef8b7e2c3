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

import "fmt"

// LBVlanAction is one VLAN connect/disconnect entry of an
// UpdateTenantLB workflow.
type LBVlanAction struct {
	Action          string // ConnectDevice or DisconnectDevice
	VlanLogicalName string
	VlanType        string
	DeviceAddress   string
}

// LBClient drives the tenant load balancer workflows.
type LBClient struct {
	client *Client
}

func (l *LBClient) CreateTenantLB(nwaTenantID, resourceGroupName,
	deviceAddress, vlanLogicalName, vlanType string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":                     nwaTenantID,
		"CreateNW_DeviceType1":         "LB",
		"CreateNW_Vlan_DeviceAddress1": deviceAddress,
		"CreateNW_VlanLogicalName1":    vlanLogicalName,
		"CreateNW_VlanType1":           vlanType,
		"CreateNW_DCResourceGroupName": resourceGroupName,
	}
	return l.client.workflow("CreateTenantLB", body)
}

// UpdateTenantLB reconfigures the VLAN attachments of an existing
// tenant load balancer; the workflow accepts several numbered VLAN
// entries in one call.
func (l *LBClient) UpdateTenantLB(nwaTenantID, deviceName string,
	actions []LBVlanAction) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":               nwaTenantID,
		"ReconfigNW_DeviceName1": deviceName,
		"ReconfigNW_DeviceType1": "LB",
	}
	for i, action := range actions {
		n := i + 1
		body[fmt.Sprintf("ReconfigNW_VlanLogicalName%d", n)] = action.VlanLogicalName
		body[fmt.Sprintf("ReconfigNW_VlanType%d", n)] = action.VlanType
		body[fmt.Sprintf("ReconfigNW_Vlan_DeviceAddress%d", n)] = action.DeviceAddress
		body[fmt.Sprintf("ReconfigNW_Vlan_ConnectDevice%d", n)] = action.Action
	}
	return l.client.workflow("UpdateTenantLB", body)
}

func (l *LBClient) DeleteTenantLB(nwaTenantID, deviceName,
	vlanLogicalName, vlanType string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":                  nwaTenantID,
		"DeleteNW_DeviceName1":      deviceName,
		"DeleteNW_DeviceType1":      "LB",
		"DeleteNW_VlanLogicalName1": vlanLogicalName,
		"DeleteNW_VlanType1":        vlanType,
	}
	return l.client.workflow("DeleteTenantLB", body)
}

func (l *LBClient) SettingLBPolicy(nwaTenantID, deviceName, operation string,
	policy map[string]interface{}) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":            nwaTenantID,
		"DCResourceType":      "LB_Policy",
		"DCResourceOperation": operation,
		"DeviceInfo": map[string]interface{}{
			"Type":       "LB",
			"DeviceName": deviceName,
		},
		"Policy": policy,
	}
	return l.client.workflow("SettingLBPolicy", body)
}
