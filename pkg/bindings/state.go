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

package bindings

import (
	"fmt"
	"strconv"
	"strings"
)

// Device types discriminating a VLAN segment.  Load balancer segments
// carry the VLAN type of the VIP network, e.g. "LB_PublicVLAN".
const (
	DeviceTypeGD  = "GD"
	DeviceTypeTFW = "TFW"
)

func LBDeviceType(vlanType string) string {
	return "LB_" + vlanType
}

// ResourceState is persisted with every VLAN segment and device
// interface so a crash mid-transition is diagnosable from the binding
// itself instead of inferred from which keys happen to exist.
type ResourceState string

const (
	StateCreating  ResourceState = "creating"
	StateAttached  ResourceState = "attached"
	StateDetaching ResourceState = "detaching"
)

const (
	keyCreateTenant   = "CreateTenant"
	keyCreateTenantNW = "CreateTenantNW"

	prefixNW     = "NW_"
	prefixVlan   = "VLAN_"
	prefixDev    = "DEV_"
	prefixNat    = "NAT_"
	prefixLB     = "LB_"
	prefixPolicy = "POLICY_"
)

type NetworkRecord struct {
	Name           string
	NwaNetworkName string
	Subnet         string
	SubnetID       string
}

// VlanKey identifies one VLAN segment: the device type discriminator
// is one of GD, TFW or LB_<vlan type>.
type VlanKey struct {
	NetworkID     string
	ResourceGroup string
	DeviceType    string
}

type VlanRecord struct {
	State    ResourceState
	VlanID   string
	RefCount int
}

type DeviceRecord struct {
	Owner           string
	PhysicalNetwork string
}

type InterfaceKey struct {
	DeviceID  string
	NetworkID string
}

type InterfaceRecord struct {
	State        ResourceState
	IPAddress    string
	MacAddress   string
	TenantFWName string
}

type NatRecord struct {
	DeviceID   string
	NetworkID  string
	FloatingIP string
	FixedIP    string
}

type LBRecord struct {
	NetworkID    string
	Address      string
	ProtocolPort string
}

// TenantState is the typed view of one tenant binding.  It is parsed
// from and flattened back to the flat compound-key mapping, which
// remains the wire and persistence format.
type TenantState struct {
	TenantID    string
	NwaTenantID string

	CreateTenant   bool
	CreateTenantNW bool

	Networks   map[string]*NetworkRecord
	Vlans      map[VlanKey]*VlanRecord
	Devices    map[string]*DeviceRecord
	Interfaces map[InterfaceKey]*InterfaceRecord
	Nats       map[string]*NatRecord
	LBs        map[string]*LBRecord
	Policies   map[string]string
}

func NewTenantState(tenantID, nwaTenantID string) *TenantState {
	return &TenantState{
		TenantID:    tenantID,
		NwaTenantID: nwaTenantID,
		Networks:    make(map[string]*NetworkRecord),
		Vlans:       make(map[VlanKey]*VlanRecord),
		Devices:     make(map[string]*DeviceRecord),
		Interfaces:  make(map[InterfaceKey]*InterfaceRecord),
		Nats:        make(map[string]*NatRecord),
		LBs:         make(map[string]*LBRecord),
		Policies:    make(map[string]string),
	}
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		// coercion folds "1"/"0" into booleans on read
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asInt(value interface{}) int {
	switch v := value.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func asBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "True" || v == "1"
	default:
		return false
	}
}

func (s *TenantState) network(id string) *NetworkRecord {
	n, ok := s.Networks[id]
	if !ok {
		n = &NetworkRecord{}
		s.Networks[id] = n
	}
	return n
}

func (s *TenantState) device(id string) *DeviceRecord {
	d, ok := s.Devices[id]
	if !ok {
		d = &DeviceRecord{}
		s.Devices[id] = d
	}
	return d
}

func (s *TenantState) iface(key InterfaceKey) *InterfaceRecord {
	i, ok := s.Interfaces[key]
	if !ok {
		i = &InterfaceRecord{}
		s.Interfaces[key] = i
	}
	return i
}

func (s *TenantState) nat(id string) *NatRecord {
	n, ok := s.Nats[id]
	if !ok {
		n = &NatRecord{}
		s.Nats[id] = n
	}
	return n
}

func (s *TenantState) lb(id string) *LBRecord {
	l, ok := s.LBs[id]
	if !ok {
		l = &LBRecord{}
		s.LBs[id] = l
	}
	return l
}

// HasLiveSegments reports whether any VLAN segment still references
// the given network.
func (s *TenantState) HasLiveSegments(networkID string) bool {
	for key := range s.Vlans {
		if key.NetworkID == networkID {
			return true
		}
	}
	return false
}

// Drained reports whether the binding no longer carries any vendor
// resource and the tenant row can be removed.
func (s *TenantState) Drained() bool {
	return len(s.Networks) == 0 && len(s.Vlans) == 0 &&
		len(s.Devices) == 0 && len(s.Nats) == 0 && len(s.LBs) == 0
}

// splitVlanKey decodes "VLAN_<net>_<group>_<type>".  Network ids are
// UUIDs and never contain underscores; resource group names may, so
// the device type is matched from the right.
func splitVlanKey(rest string) (VlanKey, bool) {
	sep := strings.Index(rest, "_")
	if sep < 0 {
		return VlanKey{}, false
	}
	networkID := rest[:sep]
	tail := rest[sep+1:]

	switch {
	case strings.HasSuffix(tail, "_"+DeviceTypeTFW):
		return VlanKey{networkID, tail[:len(tail)-len(DeviceTypeTFW)-1],
			DeviceTypeTFW}, true
	case strings.HasSuffix(tail, "_"+DeviceTypeGD):
		return VlanKey{networkID, tail[:len(tail)-len(DeviceTypeGD)-1],
			DeviceTypeGD}, true
	}
	if i := strings.LastIndex(tail, "_LB_"); i >= 0 {
		return VlanKey{networkID, tail[:i], tail[i+1:]}, true
	}
	return VlanKey{}, false
}

// ParseTenantState decodes a flat binding mapping into the typed view.
// Unknown keys are an error: they indicate the binding was written by
// a newer or diverged peer.
func ParseTenantState(tenantID, nwaTenantID string, value Mapping) (*TenantState, error) {
	s := NewTenantState(tenantID, nwaTenantID)

	for key, raw := range value {
		switch {
		case key == keyCreateTenant:
			s.CreateTenant = asBool(raw)
		case key == keyCreateTenantNW:
			s.CreateTenantNW = asBool(raw)

		case strings.HasPrefix(key, prefixNW):
			rest := key[len(prefixNW):]
			sep := strings.Index(rest, "_")
			if sep < 0 {
				s.network(rest).Name = asString(raw)
				continue
			}
			n := s.network(rest[:sep])
			switch rest[sep+1:] {
			case "nwa_network_name":
				n.NwaNetworkName = asString(raw)
			case "subnet":
				n.Subnet = asString(raw)
			case "subnet_id":
				n.SubnetID = asString(raw)
			default:
				return nil, fmt.Errorf("unknown network key %q", key)
			}

		case strings.HasPrefix(key, prefixVlan):
			rest := key[len(prefixVlan):]
			suffix := ""
			for _, cand := range []string{"_VlanID", "_RefCount"} {
				if strings.HasSuffix(rest, cand) {
					suffix = cand
					rest = rest[:len(rest)-len(cand)]
					break
				}
			}
			vk, ok := splitVlanKey(rest)
			if !ok {
				return nil, fmt.Errorf("unknown VLAN key %q", key)
			}
			rec, ok := s.Vlans[vk]
			if !ok {
				rec = &VlanRecord{}
				s.Vlans[vk] = rec
			}
			switch suffix {
			case "_VlanID":
				rec.VlanID = asString(raw)
			case "_RefCount":
				rec.RefCount = asInt(raw)
			default:
				rec.State = ResourceState(asString(raw))
			}

		case strings.HasPrefix(key, prefixDev):
			rest := key[len(prefixDev):]
			sep := strings.Index(rest, "_")
			if sep < 0 {
				return nil, fmt.Errorf("unknown device key %q", key)
			}
			deviceID := rest[:sep]
			tail := rest[sep+1:]
			switch tail {
			case "device_owner":
				s.device(deviceID).Owner = asString(raw)
				continue
			case "physical_network":
				s.device(deviceID).PhysicalNetwork = asString(raw)
				continue
			}
			sep = strings.Index(tail, "_")
			if sep < 0 {
				return nil, fmt.Errorf("unknown device key %q", key)
			}
			ik := InterfaceKey{deviceID, tail[:sep]}
			rec := s.iface(ik)
			switch tail[sep+1:] {
			case "ip_address":
				rec.IPAddress = asString(raw)
			case "mac_address":
				rec.MacAddress = asString(raw)
			case "TenantFWName":
				rec.TenantFWName = asString(raw)
			case "state":
				rec.State = ResourceState(asString(raw))
			default:
				return nil, fmt.Errorf("unknown device key %q", key)
			}

		case strings.HasPrefix(key, prefixNat):
			rest := key[len(prefixNat):]
			sep := strings.Index(rest, "_")
			if sep < 0 {
				s.nat(rest).DeviceID = asString(raw)
				continue
			}
			rec := s.nat(rest[:sep])
			switch rest[sep+1:] {
			case "network_id":
				rec.NetworkID = asString(raw)
			case "floating_ip":
				rec.FloatingIP = asString(raw)
			case "fixed_ip":
				rec.FixedIP = asString(raw)
			default:
				return nil, fmt.Errorf("unknown NAT key %q", key)
			}

		case strings.HasPrefix(key, prefixPolicy):
			s.Policies[key[len(prefixPolicy):]] = asString(raw)

		case strings.HasPrefix(key, prefixLB):
			rest := key[len(prefixLB):]
			sep := strings.Index(rest, "_")
			if sep < 0 {
				s.lb(rest).Address = asString(raw)
				continue
			}
			rec := s.lb(rest[:sep])
			switch rest[sep+1:] {
			case "network_id":
				rec.NetworkID = asString(raw)
			case "protocol_port":
				rec.ProtocolPort = asString(raw)
			default:
				return nil, fmt.Errorf("unknown LB key %q", key)
			}

		default:
			return nil, fmt.Errorf("unknown binding key %q", key)
		}
	}
	return s, nil
}

// Flatten encodes the typed view back into the flat mapping.
func (s *TenantState) Flatten() Mapping {
	value := make(Mapping)
	if s.CreateTenant {
		value[keyCreateTenant] = true
	}
	if s.CreateTenantNW {
		value[keyCreateTenantNW] = true
	}

	for id, n := range s.Networks {
		value[prefixNW+id] = n.Name
		if n.NwaNetworkName != "" {
			value[prefixNW+id+"_nwa_network_name"] = n.NwaNetworkName
		}
		if n.Subnet != "" {
			value[prefixNW+id+"_subnet"] = n.Subnet
		}
		if n.SubnetID != "" {
			value[prefixNW+id+"_subnet_id"] = n.SubnetID
		}
	}

	for vk, rec := range s.Vlans {
		base := prefixVlan + vk.NetworkID + "_" + vk.ResourceGroup +
			"_" + vk.DeviceType
		value[base] = string(rec.State)
		if rec.VlanID != "" {
			value[base+"_VlanID"] = rec.VlanID
		}
		value[base+"_RefCount"] = rec.RefCount
	}

	for id, d := range s.Devices {
		value[prefixDev+id+"_device_owner"] = d.Owner
		if d.PhysicalNetwork != "" {
			value[prefixDev+id+"_physical_network"] = d.PhysicalNetwork
		}
	}

	for ik, rec := range s.Interfaces {
		base := prefixDev + ik.DeviceID + "_" + ik.NetworkID
		if rec.IPAddress != "" {
			value[base+"_ip_address"] = rec.IPAddress
		}
		if rec.MacAddress != "" {
			value[base+"_mac_address"] = rec.MacAddress
		}
		if rec.TenantFWName != "" {
			value[base+"_TenantFWName"] = rec.TenantFWName
		}
		if rec.State != "" {
			value[base+"_state"] = string(rec.State)
		}
	}

	for id, rec := range s.Nats {
		value[prefixNat+id] = rec.DeviceID
		value[prefixNat+id+"_network_id"] = rec.NetworkID
		value[prefixNat+id+"_floating_ip"] = rec.FloatingIP
		value[prefixNat+id+"_fixed_ip"] = rec.FixedIP
	}

	for id, rec := range s.LBs {
		value[prefixLB+id] = rec.Address
		value[prefixLB+id+"_network_id"] = rec.NetworkID
		if rec.ProtocolPort != "" {
			value[prefixLB+id+"_protocol_port"] = rec.ProtocolPort
		}
	}

	for id, policy := range s.Policies {
		value[prefixPolicy+id] = policy
	}
	return value
}
