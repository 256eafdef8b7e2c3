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

// TenantClient manages NWA tenants.  Tenant create and delete are
// plain REST resources, not workflows, so they return the HTTP status
// directly with no polling.
type TenantClient struct {
	client *Client
}

func tenantPath(nwaTenantID string) string {
	return fmt.Sprintf("/umf/tenant/%s", nwaTenantID)
}

func (t *TenantClient) Create(nwaTenantID string) (int, map[string]interface{}, error) {
	body := map[string]interface{}{
		"TenantName": nwaTenantID,
	}
	return t.client.post(tenantPath(nwaTenantID), body)
}

func (t *TenantClient) Delete(nwaTenantID string) (int, map[string]interface{}, error) {
	return t.client.delete(tenantPath(nwaTenantID))
}
