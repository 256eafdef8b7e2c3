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
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/openstack-archive/networking-nec-sub001/pkg/nwaapi"
)

// ResourceGroupEntry maps one (physical network, device owner) pair to
// the NWA resource group devices of that kind attach through.  An
// empty DeviceOwner matches any owner and is also the entry used for
// the tenant network itself.
type ResourceGroupEntry struct {
	PhysicalNetwork   string `json:"physical_network"`
	DeviceOwner       string `json:"device_owner,omitempty"`
	ResourceGroupName string `json:"ResourceGroupName"`
}

// Configuration for the NWA agent.
type AgentConfig struct {
	// Log level
	LogLevel string `json:"log-level,omitempty"`

	// TCP port to run status server on (or 0 to disable)
	StatusPort int `json:"status-port,omitempty"`

	// Base name for per-tenant RPC topics
	BaseTopic string `json:"base-topic,omitempty"`

	// Upper bound on concurrently served tenant topics
	TopicPoolSize int `json:"topic-pool-size,omitempty"`

	// Address of the tenant binding RPC server (empty runs an
	// in-process store)
	BindingServer string `json:"binding-server,omitempty"`

	// Resource group mapping, inline or loaded from a file
	ResourceGroups    []ResourceGroupEntry `json:"resource-groups,omitempty"`
	ResourceGroupFile string               `json:"resource-group-file,omitempty"`

	// NWA endpoint and credentials
	Nwa nwaapi.Config `json:"nwa,omitempty"`
}

func (config *AgentConfig) InitFlags() {
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level")

	flag.IntVar(&config.StatusPort, "status-port", 8090,
		"TCP port to run status server on (or 0 to disable)")

	flag.StringVar(&config.BaseTopic, "base-topic", "nwa-agent",
		"Base name for per-tenant RPC topics")
	flag.IntVar(&config.TopicPoolSize, "topic-pool-size", 1000,
		"Upper bound on concurrently served tenant topics")

	flag.StringVar(&config.BindingServer, "binding-server", "",
		"Address of the tenant binding RPC server")

	flag.StringVar(&config.ResourceGroupFile, "resource-group-file", "",
		"Absolute path to a resource group mapping file")

	flag.StringVar(&config.Nwa.Server, "nwa-server", "",
		"URL of the NWA orchestrator")
	flag.StringVar(&config.Nwa.AccessKeyID, "nwa-access-key-id", "",
		"NWA access key id")
	flag.StringVar(&config.Nwa.SecretKey, "nwa-secret-key", "",
		"NWA secret access key")
	flag.IntVar(&config.Nwa.PollingRetries, "nwa-polling-retries", 0,
		"Workflow polling retry count (0 for default)")
}

// LoadResourceGroups reads the mapping file when one is configured.
// Inline entries and file entries are concatenated.
func (config *AgentConfig) LoadResourceGroups() error {
	if config.ResourceGroupFile == "" {
		return nil
	}
	raw, err := os.ReadFile(config.ResourceGroupFile)
	if err != nil {
		return err
	}
	var entries []ResourceGroupEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("resource group file %s: %v",
			config.ResourceGroupFile, err)
	}
	config.ResourceGroups = append(config.ResourceGroups, entries...)
	return nil
}

// ResourceGroup resolves the group for a device: an entry naming the
// device owner wins over a wildcard entry for the same physical
// network.
func (config *AgentConfig) ResourceGroup(physicalNetwork,
	deviceOwner string) (string, bool) {
	wildcard := ""
	found := false
	for _, entry := range config.ResourceGroups {
		if entry.PhysicalNetwork != physicalNetwork {
			continue
		}
		if entry.DeviceOwner == deviceOwner ||
			(strings.HasPrefix(deviceOwner, "compute:") &&
				entry.DeviceOwner == "compute:") {
			return entry.ResourceGroupName, true
		}
		if entry.DeviceOwner == "" {
			wildcard = entry.ResourceGroupName
			found = true
		}
	}
	return wildcard, found
}

// KnownPhysicalNetwork reports whether any mapping entry covers the
// physical network, which is what segment binding checks.
func (config *AgentConfig) KnownPhysicalNetwork(physicalNetwork string) bool {
	for _, entry := range config.ResourceGroups {
		if entry.PhysicalNetwork == physicalNetwork {
			return true
		}
	}
	return false
}
