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

// Prometheus exporter

package agent

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	topicsDesc = prometheus.NewDesc("nwa_agent_topics",
		"Tenant topics currently served", nil, nil)
	topicLimitDesc = prometheus.NewDesc("nwa_agent_topic_limit",
		"Upper bound of the tenant topic pool", nil, nil)
	lockedDesc = prometheus.NewDesc("nwa_agent_locked_tenants",
		"Tenants with an NWA workflow in flight", nil, nil)
)

// agentCollector exports gauges straight off the live agent state, so
// a scrape never observes a stale counter.
type agentCollector struct {
	agent *NwaAgent
}

func (c *agentCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- topicsDesc
	ch <- topicLimitDesc
	ch <- lockedDesc
}

func (c *agentCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(topicsDesc,
		prometheus.GaugeValue, float64(c.agent.topics.Size()))
	ch <- prometheus.MustNewConstMetric(topicLimitDesc,
		prometheus.GaugeValue, float64(c.agent.topics.limit))
	ch <- prometheus.MustNewConstMetric(lockedDesc,
		prometheus.GaugeValue,
		float64(c.agent.proxy.Locks().LockedCount()))
}

func (agent *NwaAgent) metricsHandler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(&agentCollector{agent: agent})
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
