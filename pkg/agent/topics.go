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
	"errors"
	"io"
	"sort"
	"sync"
)

var ErrTopicPoolFull = errors.New("tenant topic pool is full")

// TopicFactory starts serving one tenant topic and returns a handle
// that stops it.
type TopicFactory func(topic string) (io.Closer, error)

// TopicPool tracks the per-tenant RPC topics the agent serves.
// Topics are created on demand when a tenant's first port shows up and
// torn down when the tenant binding is removed.  The pool size is
// bounded so a runaway tenant churn cannot exhaust the process.
type TopicPool struct {
	base    string
	limit   int
	factory TopicFactory

	mutex  sync.Mutex
	topics map[string]io.Closer
}

func NewTopicPool(base string, limit int, factory TopicFactory) *TopicPool {
	return &TopicPool{
		base:    base,
		limit:   limit,
		factory: factory,
		topics:  make(map[string]io.Closer),
	}
}

// TopicName returns the topic a tenant's RPC traffic uses.
func (p *TopicPool) TopicName(tenantID string) string {
	return p.base + "-" + tenantID
}

// Ensure serves the tenant's topic, creating it if this is the
// tenant's first use.
func (p *TopicPool) Ensure(tenantID string) (string, error) {
	topic := p.TopicName(tenantID)

	p.mutex.Lock()
	defer p.mutex.Unlock()
	if _, ok := p.topics[topic]; ok {
		return topic, nil
	}
	if p.limit > 0 && len(p.topics) >= p.limit {
		return "", ErrTopicPoolFull
	}
	closer, err := p.factory(topic)
	if err != nil {
		return "", err
	}
	p.topics[topic] = closer
	return topic, nil
}

// Remove stops serving the tenant's topic.  Unknown tenants are a
// no-op so removal can follow any teardown path.
func (p *TopicPool) Remove(tenantID string) error {
	topic := p.TopicName(tenantID)

	p.mutex.Lock()
	closer, ok := p.topics[topic]
	delete(p.topics, topic)
	p.mutex.Unlock()

	if !ok {
		return nil
	}
	return closer.Close()
}

func (p *TopicPool) Size() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.topics)
}

// Topics returns the served topic names, sorted for stable status
// output.
func (p *TopicPool) Topics() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	names := make([]string, 0, len(p.topics))
	for topic := range p.topics {
		names = append(names, topic)
	}
	sort.Strings(names)
	return names
}

// Close stops every topic, for agent shutdown.
func (p *TopicPool) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for topic, closer := range p.topics {
		closer.Close()
		delete(p.topics, topic)
	}
}
