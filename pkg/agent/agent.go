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
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/openstack-archive/networking-nec-sub001/pkg/bindings"
	"github.com/openstack-archive/networking-nec-sub001/pkg/nwaapi"
	"github.com/openstack-archive/networking-nec-sub001/pkg/proxy"
)

// NwaAgent wires the reconciler, the binding store and the per-tenant
// topic pool into one serving process.
type NwaAgent struct {
	config  *AgentConfig
	log     *logrus.Logger
	store   bindings.Store
	proxy   *proxy.AgentProxy
	topics  *TopicPool
	adapter *EventAdapter

	drainRetries  int
	drainInterval time.Duration
}

type nopTopic struct{}

func (nopTopic) Close() error { return nil }

// defaultTopicFactory tracks topic lifecycle only; the transport that
// carries per-topic traffic is owned by the host framework.
func defaultTopicFactory(string) (io.Closer, error) {
	return nopTopic{}, nil
}

func NewNwaAgent(config *AgentConfig, log *logrus.Logger) (*NwaAgent, error) {
	if err := config.LoadResourceGroups(); err != nil {
		return nil, err
	}

	var store bindings.Store
	if config.BindingServer != "" {
		server := config.BindingServer
		store = bindings.NewRpcStore(func() (net.Conn, error) {
			return net.Dial("tcp", server)
		}, log)
	} else {
		store = bindings.NewMemStore()
	}

	client, err := nwaapi.NewClient(log, &config.Nwa)
	if err != nil {
		return nil, err
	}

	p := proxy.NewAgentProxy(store, proxy.NewDriver(client), log)
	topics := NewTopicPool(config.BaseTopic, config.TopicPoolSize,
		defaultTopicFactory)

	agent := &NwaAgent{
		config:        config,
		log:           log,
		store:         store,
		proxy:         p,
		topics:        topics,
		drainRetries:  30,
		drainInterval: time.Second,
	}
	agent.adapter = NewEventAdapter(config, p, topics, log)
	return agent, nil
}

// Proxy exposes the reconciler for callback registration.
func (agent *NwaAgent) Proxy() *proxy.AgentProxy {
	return agent.proxy
}

// Adapter exposes the event dispatch surface.
func (agent *NwaAgent) Adapter() *EventAdapter {
	return agent.adapter
}

// Run serves until the stop channel closes, then waits for in-flight
// tenant operations to drain before tearing down the topic pool.
func (agent *NwaAgent) Run(stopCh <-chan struct{}) {
	agent.log.WithFields(logrus.Fields{
		"base-topic": agent.config.BaseTopic,
		"nwa-server": agent.config.Nwa.Server,
	}).Info("Starting NWA agent")

	if agent.config.StatusPort > 0 {
		go agent.RunStatus()
	}
	<-stopCh
	agent.drain()
	agent.topics.Close()
}

// drain gives tenants holding their operation lock a bounded window
// to finish.
func (agent *NwaAgent) drain() {
	for i := 0; i < agent.drainRetries; i++ {
		if !agent.proxy.Locks().AnyLocked() {
			return
		}
		agent.log.Info("Waiting for in-flight tenant operations")
		time.Sleep(agent.drainInterval)
	}
	agent.log.Warning("Shutdown drain gave up with operations in flight")
}

type agentStatus struct {
	Topics     int  `json:"topics"`
	AnyLocked  bool `json:"any-locked"`
	StatusPort int  `json:"status-port,omitempty"`
}

type deviceReadyNotice struct {
	DeviceID  string `json:"device_id"`
	NetworkID string `json:"network_id"`
}

// StatusRouter builds the status and notification HTTP surface.
func (agent *NwaAgent) StatusRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&agentStatus{
			Topics:     agent.topics.Size(),
			AnyLocked:  agent.proxy.Locks().AnyLocked(),
			StatusPort: agent.config.StatusPort,
		})
	}).Methods(http.MethodGet)

	router.Handle("/metrics", agent.metricsHandler()).Methods(http.MethodGet)

	router.HandleFunc("/topics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(agent.topics.Topics())
	}).Methods(http.MethodGet)

	router.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(agent.config)
	}).Methods(http.MethodGet)

	router.HandleFunc("/bindings/{tenant}/{nwatenant}",
		func(w http.ResponseWriter, r *http.Request) {
			vars := mux.Vars(r)
			value, err := agent.store.Get(vars["tenant"], vars["nwatenant"])
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(value)
		}).Methods(http.MethodGet)

	router.HandleFunc("/deviceready",
		func(w http.ResponseWriter, r *http.Request) {
			var notice deviceReadyNotice
			if err := json.NewDecoder(r.Body).Decode(&notice); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if notice.DeviceID == "" || notice.NetworkID == "" {
				http.Error(w, "device_id and network_id are required",
					http.StatusBadRequest)
				return
			}
			agent.proxy.Ready().Notify(notice.DeviceID, notice.NetworkID)
			w.WriteHeader(http.StatusNoContent)
		}).Methods(http.MethodPost)

	return router
}

func (agent *NwaAgent) RunStatus() {
	agent.log.Info("Starting status server")
	panic(http.ListenAndServe(
		fmt.Sprintf(":%d", agent.config.StatusPort), agent.StatusRouter()))
}
