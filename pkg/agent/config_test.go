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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceGroupOwnerSpecificWins(t *testing.T) {
	config := &AgentConfig{
		ResourceGroups: []ResourceGroupEntry{
			{PhysicalNetwork: "physnet1", ResourceGroupName: "OpenStack/DC1/COMMON"},
			{PhysicalNetwork: "physnet1", DeviceOwner: "network:dhcp",
				ResourceGroupName: "OpenStack/DC1/DHCP"},
			{PhysicalNetwork: "physnet1", DeviceOwner: "compute:",
				ResourceGroupName: "OpenStack/DC1/COMPUTE"},
		},
	}

	group, ok := config.ResourceGroup("physnet1", "network:dhcp")
	assert.True(t, ok)
	assert.Equal(t, "OpenStack/DC1/DHCP", group)

	// compute availability zones all match the compute: prefix entry
	group, ok = config.ResourceGroup("physnet1", "compute:nova")
	assert.True(t, ok)
	assert.Equal(t, "OpenStack/DC1/COMPUTE", group)

	group, ok = config.ResourceGroup("physnet1", "network:router_interface")
	assert.True(t, ok)
	assert.Equal(t, "OpenStack/DC1/COMMON", group)

	_, ok = config.ResourceGroup("physnet9", "network:dhcp")
	assert.False(t, ok)
}

func TestKnownPhysicalNetwork(t *testing.T) {
	config := testConfig()
	assert.True(t, config.KnownPhysicalNetwork("physnet1"))
	assert.False(t, config.KnownPhysicalNetwork("physnet9"))
}

func TestLoadResourceGroupsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	err := os.WriteFile(path, []byte(`[
		{"physical_network": "physnet2",
		 "ResourceGroupName": "OpenStack/DC2/APP"}
	]`), 0644)
	assert.Nil(t, err)

	config := testConfig()
	config.ResourceGroupFile = path
	assert.Nil(t, config.LoadResourceGroups())

	// file entries extend the inline ones
	assert.True(t, config.KnownPhysicalNetwork("physnet1"))
	group, ok := config.ResourceGroup("physnet2", "network:dhcp")
	assert.True(t, ok)
	assert.Equal(t, "OpenStack/DC2/APP", group)
}

func TestLoadResourceGroupsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	assert.Nil(t, os.WriteFile(path, []byte("not json"), 0644))

	config := testConfig()
	config.ResourceGroupFile = path
	assert.NotNil(t, config.LoadResourceGroups())
}
