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
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/openstack-archive/networking-nec-sub001/pkg/bindings"
	"github.com/openstack-archive/networking-nec-sub001/pkg/idpool"
	"github.com/openstack-archive/networking-nec-sub001/pkg/nwaapi"
	"github.com/openstack-archive/networking-nec-sub001/pkg/tenantlock"
)

// Device owners dispatched by the agent.
const (
	OwnerRouterInterface = "network:router_interface"
	OwnerRouterGateway   = "network:router_gateway"
	OwnerDHCP            = "network:dhcp"
	OwnerFloatingIP      = "network:floatingip"
	OwnerLoadBalancer    = "network:LOADBALANCER"
	OwnerComputePrefix   = "compute:"
)

// FW policy id namespaces share one numeric range per device.
const (
	policyIDMin = 1
	policyIDMax = 65535
)

const deviceReadyTimeout = 30 * time.Second

// NwaInfo carries the per-event resource context resolved by the
// plugin side: which tenant, network, subnet, device and port an
// operation is about, plus the resource group mapping for the host.
type NwaInfo struct {
	TenantID    string
	NwaTenantID string

	Network struct {
		ID       string
		Name     string
		VlanType string
	}
	Subnet struct {
		ID      string
		NetAddr string
		Mask    string
	}
	Device struct {
		ID    string
		Owner string
	}
	Port struct {
		IPAddress  string
		MacAddress string
	}

	PhysicalNetwork     string
	ResourceGroupName   string
	ResourceGroupNameNW string
	PortType            string
}

// ProxyError is returned when an operation fails after the tenant
// binding has been partially mutated.  It carries the flattened
// snapshot so the caller persists exactly what the vendor side
// reached, keeping the binding diagnosable after a crash.
type ProxyError struct {
	Message  string
	Snapshot bindings.Mapping
}

func (e *ProxyError) Error() string {
	return e.Message
}

// FirewallEvent is handed to FirewallHooks observers around tenant
// firewall transitions.
type FirewallEvent struct {
	TenantID     string
	NwaTenantID  string
	DeviceID     string
	NetworkID    string
	TenantFWName string
}

// FirewallHooks lets the L3 plugin react to firewall lifecycle
// transitions, e.g. raising the router port to ACTIVE once the vendor
// firewall carries the interface.  A hook error aborts the operation;
// the binding mutation is persisted regardless.
type FirewallHooks interface {
	FirewallCreated(ev *FirewallEvent) error
	FirewallConnected(ev *FirewallEvent) error
	FirewallDisconnected(ev *FirewallEvent) error
	FirewallDeleted(ev *FirewallEvent) error
}

type nopFirewallHooks struct{}

func (nopFirewallHooks) FirewallCreated(*FirewallEvent) error      { return nil }
func (nopFirewallHooks) FirewallConnected(*FirewallEvent) error    { return nil }
func (nopFirewallHooks) FirewallDisconnected(*FirewallEvent) error { return nil }
func (nopFirewallHooks) FirewallDeleted(*FirewallEvent) error      { return nil }

// AgentProxy reconciles Neutron-side resource events against the NWA
// orchestrator and the tenant binding store.  All operations on one
// tenant are serialized through the lock registry.
type AgentProxy struct {
	store   bindings.Store
	nwa     Driver
	locks   *tenantlock.Registry
	ids     *idpool.Manager
	ready   *DeviceReadyNotifier
	fwHooks FirewallHooks
	log     *logrus.Logger

	readyTimeout time.Duration
}

func NewAgentProxy(store bindings.Store, nwa Driver,
	log *logrus.Logger) *AgentProxy {
	return &AgentProxy{
		store:        store,
		nwa:          nwa,
		locks:        tenantlock.NewRegistry(),
		ids:          idpool.NewManager(policyIDMin, policyIDMax),
		ready:        NewDeviceReadyNotifier(),
		fwHooks:      nopFirewallHooks{},
		log:          log,
		readyTimeout: deviceReadyTimeout,
	}
}

// SetFirewallHooks registers the firewall lifecycle observer.  Must be
// called before the proxy starts serving events.
func (p *AgentProxy) SetFirewallHooks(hooks FirewallHooks) {
	p.fwHooks = hooks
}

// Ready exposes the device-ready notifier so the transport layer can
// deliver agent acknowledgements.
func (p *AgentProxy) Ready() *DeviceReadyNotifier {
	return p.ready
}

// Locks exposes the per-tenant lock registry for status reporting.
func (p *AgentProxy) Locks() *tenantlock.Registry {
	return p.locks
}

// HasBinding reports whether a binding row currently exists for the
// tenant.
func (p *AgentProxy) HasBinding(tenantID, nwaTenantID string) bool {
	_, err := p.store.Get(tenantID, nwaTenantID)
	return err == nil
}

// loadState fetches and parses the tenant binding.  A missing binding
// yields a fresh state with existed=false.
func (p *AgentProxy) loadState(tenantID, nwaTenantID string) (*bindings.TenantState, bool, error) {
	value, err := p.store.Get(tenantID, nwaTenantID)
	if err == bindings.ErrBindingNotFound {
		return bindings.NewTenantState(tenantID, nwaTenantID), false, nil
	} else if err != nil {
		return nil, false, err
	}
	state, err := bindings.ParseTenantState(tenantID, nwaTenantID, value)
	if err != nil {
		return nil, false, errors.Wrap(err, "corrupt tenant binding")
	}
	return state, true, nil
}

// saveState persists the typed state as the full replacement value of
// the tenant binding row.
func (p *AgentProxy) saveState(state *bindings.TenantState, existed bool) error {
	if existed {
		return p.store.Set(state.TenantID, state.NwaTenantID, state.Flatten())
	}
	return p.store.Add(state.TenantID, state.NwaTenantID, state.Flatten())
}

// persistOnError writes the error snapshot before propagating, so a
// vendor-side failure mid-cascade leaves the binding describing what
// actually exists.
func (p *AgentProxy) persistOnError(tenantID, nwaTenantID string,
	existed bool, err error) error {
	var perr *ProxyError
	if !errors.As(err, &perr) || perr.Snapshot == nil {
		return err
	}
	var serr error
	if existed {
		serr = p.store.Set(tenantID, nwaTenantID, perr.Snapshot)
	} else {
		serr = p.store.Add(tenantID, nwaTenantID, perr.Snapshot)
	}
	if serr != nil {
		p.log.WithFields(logrus.Fields{
			"tenant": tenantID,
			"error":  serr,
		}).Error("Could not persist binding snapshot")
	}
	return err
}

func (p *AgentProxy) failf(state *bindings.TenantState,
	format string, args ...interface{}) error {
	return &ProxyError{
		Message:  fmt.Sprintf(format, args...),
		Snapshot: state.Flatten(),
	}
}

// workflowErr folds a workflow outcome into a ProxyError, logging the
// vendor error code when one is embedded in the result.
func (p *AgentProxy) workflowErr(state *bindings.TenantState, api string,
	res *nwaapi.WorkflowResult) error {
	if code, ok := res.VendorErrorCode(); ok {
		p.log.WithFields(logrus.Fields{
			"api":     api,
			"code":    code,
			"message": nwaapi.VendorErrorMessage(code),
		}).Error("NWA workflow failed")
		return p.failf(state, "%s failed: %s (code %d)",
			api, nwaapi.VendorErrorMessage(code), code)
	}
	return p.failf(state, "%s did not succeed: status %s", api, res.Status)
}

// ensureTenant creates the NWA tenant once per binding lifetime.
func (p *AgentProxy) ensureTenant(state *bindings.TenantState) error {
	if state.CreateTenant {
		return nil
	}
	status, body, err := p.nwa.CreateTenant(state.NwaTenantID)
	if err != nil {
		return p.failf(state, "CreateTenant: %v", err)
	}
	if status < 200 || status >= 300 {
		return p.failf(state, "CreateTenant: status %d body %v", status, body)
	}
	state.CreateTenant = true
	return nil
}

// ensureTenantNW creates the per-tenant network container once.
func (p *AgentProxy) ensureTenantNW(state *bindings.TenantState,
	resourceGroupNameNW string) error {
	if state.CreateTenantNW {
		return nil
	}
	res, err := p.nwa.CreateTenantNW(state.NwaTenantID, resourceGroupNameNW)
	if err != nil {
		return p.failf(state, "CreateTenantNW: %v", err)
	}
	if !res.Succeeded() {
		return p.workflowErr(state, "CreateTenantNW", res)
	}
	state.CreateTenantNW = true
	return nil
}

// ensureVlan guarantees a VLAN segment record for (network, group,
// device type).  The vendor-side VLAN is created on the network's
// first segment; further device types on the same network reuse the
// allocated VLAN id.
func (p *AgentProxy) ensureVlan(state *bindings.TenantState, info *NwaInfo,
	deviceType string) (*bindings.VlanRecord, error) {
	vk := bindings.VlanKey{
		NetworkID:     info.Network.ID,
		ResourceGroup: info.ResourceGroupName,
		DeviceType:    deviceType,
	}
	if rec, ok := state.Vlans[vk]; ok {
		return rec, nil
	}

	rec := &bindings.VlanRecord{State: bindings.StateCreating}
	if existing := firstSegment(state, info.Network.ID); existing != nil {
		rec.VlanID = existing.VlanID
		state.Vlans[vk] = rec
		return rec, nil
	}

	res, err := p.nwa.CreateVlan(state.NwaTenantID, info.Subnet.NetAddr,
		info.Subnet.Mask, info.Network.ID, info.Network.VlanType)
	if err != nil {
		return nil, p.failf(state, "CreateVlan: %v", err)
	}
	if !res.Succeeded() {
		return nil, p.workflowErr(state, "CreateVlan", res)
	}

	network := state.Networks[info.Network.ID]
	if network == nil {
		network = &bindings.NetworkRecord{}
		state.Networks[info.Network.ID] = network
	}
	network.Name = info.Network.Name
	network.Subnet = info.Subnet.NetAddr
	network.SubnetID = info.Subnet.ID
	if name := resultString(res, "LogicalNWName"); name != "" {
		network.NwaNetworkName = name
	}
	rec.VlanID = resultString(res, "VlanID")
	state.Vlans[vk] = rec
	return rec, nil
}

// vlanName resolves the logical VLAN name used on device workflows:
// the vendor-assigned name when known, else the network id.
func vlanName(state *bindings.TenantState, networkID string) string {
	if n, ok := state.Networks[networkID]; ok && n.NwaNetworkName != "" {
		return n.NwaNetworkName
	}
	return networkID
}

func firstSegment(state *bindings.TenantState, networkID string) *bindings.VlanRecord {
	for key, rec := range state.Vlans {
		if key.NetworkID == networkID {
			return rec
		}
	}
	return nil
}

// tenantFWName finds the tenant firewall device name recorded on any
// interface of the binding.  NWA provisions at most one TFW per
// tenant.
func tenantFWName(state *bindings.TenantState) string {
	for _, rec := range state.Interfaces {
		if rec.TenantFWName != "" {
			return rec.TenantFWName
		}
	}
	return ""
}

// lbDeviceName finds the tenant load balancer device name.
func lbDeviceName(state *bindings.TenantState) string {
	for id, rec := range state.Devices {
		if rec.Owner == OwnerLoadBalancer {
			return id
		}
	}
	return ""
}

// stripNetwork removes the network record once its last VLAN segment
// is gone, issuing the vendor-side VLAN delete.
func (p *AgentProxy) stripNetwork(state *bindings.TenantState,
	networkID, vlanType string) error {
	if state.HasLiveSegments(networkID) {
		return nil
	}
	name := vlanName(state, networkID)
	res, err := p.nwa.DeleteVlan(state.NwaTenantID, name, vlanType)
	if err != nil {
		return p.failf(state, "DeleteVlan: %v", err)
	}
	if !res.Succeeded() {
		return p.workflowErr(state, "DeleteVlan", res)
	}
	delete(state.Networks, networkID)
	return nil
}

// teardownTenant cascades the final delete once the binding is
// drained: tenant network, NWA tenant, binding row, lock entry.
// Ordering matters: the binding row goes last so a crash leaves
// enough state to retry the cascade.
func (p *AgentProxy) teardownTenant(state *bindings.TenantState) error {
	if state.CreateTenantNW {
		res, err := p.nwa.DeleteTenantNW(state.NwaTenantID)
		if err != nil {
			return p.failf(state, "DeleteTenantNW: %v", err)
		}
		if !res.Succeeded() {
			return p.workflowErr(state, "DeleteTenantNW", res)
		}
		state.CreateTenantNW = false
	}
	if state.CreateTenant {
		status, body, err := p.nwa.DeleteTenant(state.NwaTenantID)
		if err != nil {
			return p.failf(state, "DeleteTenant: %v", err)
		}
		if status < 200 || status >= 300 {
			// already gone vendor-side is fine on teardown
			p.log.WithFields(logrus.Fields{
				"tenant": state.NwaTenantID,
				"status": status,
				"body":   body,
			}).Warning("DeleteTenant returned non-2xx")
		}
		state.CreateTenant = false
	}
	if err := p.store.Delete(state.TenantID, state.NwaTenantID); err != nil &&
		err != bindings.ErrBindingNotFound {
		return err
	}
	p.locks.ClearHistory(state.TenantID)
	p.locks.Remove(state.TenantID)
	return nil
}

func resultString(res *nwaapi.WorkflowResult, key string) string {
	if res.ResultData == nil {
		return ""
	}
	if s, ok := res.ResultData[key].(string); ok {
		return s
	}
	return ""
}

// IsComputeOwner reports whether a device owner names a compute
// instance port.
func IsComputeOwner(owner string) bool {
	return strings.HasPrefix(owner, OwnerComputePrefix)
}
