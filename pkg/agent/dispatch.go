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

package agent

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/openstack-archive/networking-nec-sub001/pkg/proxy"
)

// EventAdapter translates port-level plugin events into reconciler
// calls.  The device-owner dispatch table is closed: owners outside it
// are rejected rather than guessed at.
type EventAdapter struct {
	config *AgentConfig
	proxy  *proxy.AgentProxy
	topics *TopicPool
	log    *logrus.Logger
}

func NewEventAdapter(config *AgentConfig, p *proxy.AgentProxy,
	topics *TopicPool, log *logrus.Logger) *EventAdapter {
	return &EventAdapter{
		config: config,
		proxy:  p,
		topics: topics,
		log:    log,
	}
}

// resolveGroups fills in the resource group fields from the agent's
// mapping configuration.
func (a *EventAdapter) resolveGroups(info *proxy.NwaInfo) error {
	group, ok := a.config.ResourceGroup(info.PhysicalNetwork,
		info.Device.Owner)
	if !ok {
		return fmt.Errorf("no resource group for physical network %q owner %q",
			info.PhysicalNetwork, info.Device.Owner)
	}
	info.ResourceGroupName = group
	groupNW, ok := a.config.ResourceGroup(info.PhysicalNetwork, "")
	if !ok {
		groupNW = group
	}
	info.ResourceGroupNameNW = groupNW
	return nil
}

// CreatePortPrecommit dispatches a port create to the reconciler path
// its device owner selects.
func (a *EventAdapter) CreatePortPrecommit(info *proxy.NwaInfo) error {
	if err := a.resolveGroups(info); err != nil {
		return err
	}
	switch {
	case info.Device.Owner == proxy.OwnerRouterInterface,
		info.Device.Owner == proxy.OwnerRouterGateway:
		return a.proxy.CreateTenantFW(info)

	case proxy.IsComputeOwner(info.Device.Owner),
		info.Device.Owner == proxy.OwnerDHCP:
		if _, err := a.topics.Ensure(info.TenantID); err != nil {
			return err
		}
		return a.proxy.CreateGeneralDev(info)

	case info.Device.Owner == proxy.OwnerFloatingIP:
		// floating ips are applied through the NAT path
		a.log.WithFields(logrus.Fields{
			"device": info.Device.ID,
		}).Debug("Ignoring floating ip port event")
		return nil
	}
	return fmt.Errorf("unsupported device owner %q", info.Device.Owner)
}

// UpdatePortPrecommit reconciles an address change by replaying the
// attachment.  Unchanged ports are a no-op.
func (a *EventAdapter) UpdatePortPrecommit(old, updated *proxy.NwaInfo) error {
	if old.Port.IPAddress == updated.Port.IPAddress &&
		old.Port.MacAddress == updated.Port.MacAddress &&
		old.Device.Owner == updated.Device.Owner {
		return nil
	}
	if err := a.DeletePortPrecommit(old); err != nil {
		return err
	}
	return a.CreatePortPrecommit(updated)
}

// DeletePortPrecommit dispatches a port delete.  When the tenant's
// binding went away with the port, the tenant topic is retired too.
func (a *EventAdapter) DeletePortPrecommit(info *proxy.NwaInfo) error {
	if err := a.resolveGroups(info); err != nil {
		return err
	}
	var err error
	switch {
	case info.Device.Owner == proxy.OwnerRouterInterface,
		info.Device.Owner == proxy.OwnerRouterGateway:
		err = a.proxy.DeleteTenantFW(info)

	case proxy.IsComputeOwner(info.Device.Owner),
		info.Device.Owner == proxy.OwnerDHCP:
		err = a.proxy.DeleteGeneralDev(info)

	case info.Device.Owner == proxy.OwnerFloatingIP:
		return nil

	default:
		return fmt.Errorf("unsupported device owner %q", info.Device.Owner)
	}
	if err != nil {
		return err
	}
	if !a.proxy.HasBinding(info.TenantID, info.NwaTenantID) {
		return a.topics.Remove(info.TenantID)
	}
	return nil
}

// TryToBindSegmentForAgent reports whether this agent can bind the
// segment: only VLAN segments on a physical network the resource
// group mapping covers are accepted.
func (a *EventAdapter) TryToBindSegmentForAgent(networkType,
	physicalNetwork string) bool {
	if networkType != "vlan" {
		return false
	}
	return a.config.KnownPhysicalNetwork(physicalNetwork)
}
