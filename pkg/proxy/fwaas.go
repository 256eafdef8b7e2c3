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
	"sort"
	"strconv"
	"strings"

	"github.com/openstack-archive/networking-nec-sub001/pkg/idpool"
)

// FirewallRule is one Neutron FWaaS rule as handed to the proxy.
// Empty address and port fields mean "any".
type FirewallRule struct {
	ID                   string
	Position             int
	Protocol             string
	SourceIPAddress      string
	DestinationIPAddress string
	SourcePort           string
	DestinationPort      string
	Action               string
	Enabled              bool
}

const (
	fwActionAllow = "allow"

	fwMatchAll = "ALL"

	portMinDefault = "1"
	portMaxDefault = "65535"
)

// splitPortRange normalizes a FWaaS port spec ("80", "8000:8080" or
// empty) into explicit lower and upper bounds.
func splitPortRange(spec string) (string, string) {
	if spec == "" {
		return portMinDefault, portMaxDefault
	}
	if i := strings.Index(spec, ":"); i >= 0 {
		lower, upper := spec[:i], spec[i+1:]
		if lower == "" {
			lower = portMinDefault
		}
		if upper == "" {
			upper = portMaxDefault
		}
		return lower, upper
	}
	return spec, spec
}

// translateRules converts FWaaS rules into the NWA policy document,
// allocating address group, service and policy ids from the device's
// pools.  Rules without protocol and ports match every service.
func (p *AgentProxy) translateRules(fwName string,
	rules []FirewallRule) (map[string]interface{}, error) {
	ordered := make([]FirewallRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Enabled {
			ordered = append(ordered, rule)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	addressGroups := []interface{}{}
	services := []interface{}{}
	policies := []interface{}{}

	addressGroup := func(address string) (string, error) {
		if address == "" {
			return fwMatchAll, nil
		}
		id, err := p.ids.Allocate(idpool.PoolKey{
			DeviceName: fwName, Kind: idpool.KindAddressGroup})
		if err != nil {
			return "", err
		}
		addressGroups = append(addressGroups, map[string]interface{}{
			"address_group_id": strconv.FormatUint(uint64(id), 10),
			"address":          address,
		})
		return strconv.FormatUint(uint64(id), 10), nil
	}

	for _, rule := range ordered {
		src, err := addressGroup(rule.SourceIPAddress)
		if err != nil {
			return nil, err
		}
		dst, err := addressGroup(rule.DestinationIPAddress)
		if err != nil {
			return nil, err
		}

		serviceID := fwMatchAll
		if rule.Protocol != "" || rule.SourcePort != "" ||
			rule.DestinationPort != "" {
			id, err := p.ids.Allocate(idpool.PoolKey{
				DeviceName: fwName, Kind: idpool.KindServiceGroup})
			if err != nil {
				return nil, err
			}
			serviceID = strconv.FormatUint(uint64(id), 10)
			lower, upper := splitPortRange(rule.DestinationPort)
			services = append(services, map[string]interface{}{
				"service_id": serviceID,
				"protocol":   strings.ToUpper(rule.Protocol),
				"lower_port": lower,
				"upper_port": upper,
			})
		}

		policyID, err := p.ids.Allocate(idpool.PoolKey{
			DeviceName: fwName, Kind: idpool.KindPolicy})
		if err != nil {
			return nil, err
		}
		action := "0"
		if rule.Action == fwActionAllow {
			action = "1"
		}
		policies = append(policies, map[string]interface{}{
			"policy_id":                         strconv.FormatUint(uint64(policyID), 10),
			"originating_address_group_id_data": []interface{}{src},
			"delivery_address_group_id_data":    []interface{}{dst},
			"fwl_service_id_data":               []interface{}{serviceID},
			"action":                            action,
		})
	}

	return map[string]interface{}{
		"name":           fwName,
		"address_groups": addressGroups,
		"services":       services,
		"policies":       policies,
	}, nil
}

// SettingFWPolicy pushes the firewall's full rule set to the vendor
// and records the policy snapshot in the tenant binding.  Ids the
// vendor reports as deleted are returned to the pools.
func (p *AgentProxy) SettingFWPolicy(info *NwaInfo, firewallID string,
	rules []FirewallRule) error {
	handle := p.locks.Acquire(info.TenantID)
	defer handle.Release()

	state, existed, err := p.loadState(info.TenantID, info.NwaTenantID)
	if err != nil {
		return err
	}
	if !existed {
		return p.failf(state, "no binding for tenant %s", info.TenantID)
	}
	fwName := tenantFWName(state)
	if fwName == "" {
		return p.failf(state, "tenant %s has no firewall device", info.TenantID)
	}

	policy, err := p.translateRules(fwName, rules)
	if err != nil {
		return p.failf(state, "rule translation: %v", err)
	}

	res, err := p.nwa.SettingFWPolicy(info.NwaTenantID, fwName, policy)
	if err != nil {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed,
			p.failf(state, "SettingFWPolicy: %v", err))
	}
	if !res.Succeeded() {
		return p.persistOnError(info.TenantID, info.NwaTenantID, existed,
			p.workflowErr(state, "SettingFWPolicy", res))
	}

	p.ids.Clear(idpool.PoolKey{DeviceName: fwName, Kind: idpool.KindPolicy},
		resultIDList(res.ResultData, "DeletePolicy"))
	p.ids.Clear(idpool.PoolKey{DeviceName: fwName, Kind: idpool.KindAddressGroup},
		resultIDList(res.ResultData, "DeleteAddressGroup"))
	p.ids.Clear(idpool.PoolKey{DeviceName: fwName, Kind: idpool.KindServiceGroup},
		resultIDList(res.ResultData, "DeleteService"))

	snapshot, _ := json.Marshal(policy)
	state.Policies[firewallID] = string(snapshot)
	return p.saveState(state, existed)
}

// resultIDList decodes a list of numeric ids from workflow result
// data, tolerating both string and number elements.
func resultIDList(data map[string]interface{}, key string) []uint32 {
	if data == nil {
		return nil
	}
	raw, ok := data[key].([]interface{})
	if !ok {
		return nil
	}
	ids := make([]uint32, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				ids = append(ids, uint32(n))
			}
		case float64:
			ids = append(ids, uint32(v))
		}
	}
	return ids
}
