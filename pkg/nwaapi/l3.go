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

// Connection directives for UpdateTenantFW.
const (
	ConnectDevice    = "connect"
	DisconnectDevice = "disconnect"
)

// L3Client drives the tenant firewall, NAT and firewall policy
// workflows.
type L3Client struct {
	client *Client
}

func (l *L3Client) CreateTenantFW(nwaTenantID, resourceGroupName,
	deviceAddress, vlanLogicalName, vlanType string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":                     nwaTenantID,
		"CreateNW_DeviceType1":         "TFW",
		"CreateNW_Vlan_DeviceAddress1": deviceAddress,
		"CreateNW_VlanLogicalName1":    vlanLogicalName,
		"CreateNW_VlanType1":           vlanType,
		"CreateNW_DCResourceGroupName": resourceGroupName,
	}
	return l.client.workflow("CreateTenantFW", body)
}

func (l *L3Client) UpdateTenantFW(nwaTenantID, deviceName, deviceAddress,
	vlanLogicalName, vlanType, connect string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":                       nwaTenantID,
		"ReconfigNW_DeviceName1":         deviceName,
		"ReconfigNW_DeviceType1":         "TFW",
		"ReconfigNW_Vlan_DeviceAddress1": deviceAddress,
		"ReconfigNW_VlanLogicalName1":    vlanLogicalName,
		"ReconfigNW_VlanType1":           vlanType,
		"ReconfigNW_Vlan_ConnectDevice1": connect,
	}
	return l.client.workflow("UpdateTenantFW", body)
}

func (l *L3Client) DeleteTenantFW(nwaTenantID, deviceName,
	vlanLogicalName, vlanType string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":                  nwaTenantID,
		"DeleteNW_DeviceName1":      deviceName,
		"DeleteNW_DeviceType1":      "TFW",
		"DeleteNW_VlanLogicalName1": vlanLogicalName,
		"DeleteNW_VlanType1":        vlanType,
	}
	return l.client.workflow("DeleteTenantFW", body)
}

func (l *L3Client) SettingNat(nwaTenantID, deviceName, vlanLogicalName,
	vlanType, localIP, globalIP string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":                    nwaTenantID,
		"ReconfigNW_DeviceName1":      deviceName,
		"ReconfigNW_DeviceType1":      "TFW",
		"ReconfigNW_VlanLogicalName1": vlanLogicalName,
		"ReconfigNW_VlanType1":        vlanType,
		"LocalIP":                     localIP,
		"GlobalIP":                    globalIP,
	}
	return l.client.workflow("SettingNAT", body)
}

func (l *L3Client) DeleteNat(nwaTenantID, deviceName, vlanLogicalName,
	vlanType, localIP, globalIP string) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":                    nwaTenantID,
		"ReconfigNW_DeviceName1":      deviceName,
		"ReconfigNW_DeviceType1":      "TFW",
		"ReconfigNW_VlanLogicalName1": vlanLogicalName,
		"ReconfigNW_VlanType1":        vlanType,
		"LocalIP":                     localIP,
		"GlobalIP":                    globalIP,
	}
	return l.client.workflow("DeleteNAT", body)
}

func (l *L3Client) SettingFWPolicy(nwaTenantID, deviceName string,
	policy map[string]interface{}) (*WorkflowResult, error) {
	body := map[string]interface{}{
		"TenantID":            nwaTenantID,
		"DCResourceType":      "TFW_Policy",
		"DCResourceOperation": "Setting",
		"DeviceInfo": map[string]interface{}{
			"Type":       "TFW",
			"DeviceName": deviceName,
		},
		"Policy": policy,
	}
	return l.client.workflow("SettingFWPolicy", body)
}
