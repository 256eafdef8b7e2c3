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

package main

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/openstack-archive/networking-nec-sub001/pkg/agent"
)

func main() {
	log := logrus.New()
	config := &agent.AgentConfig{}

	config.InitFlags()
	configPath := flag.String("config-path", "",
		"Absolute path to an agent configuration file")
	flag.Parse()

	if *configPath != "" {
		log.Info("Loading configuration from ", *configPath)
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			panic(err.Error())
		}
		err = json.Unmarshal(raw, config)
		if err != nil {
			panic(err.Error())
		}
	}

	logLevel, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		panic(err.Error())
	}
	log.Level = logLevel

	log.WithFields(logrus.Fields{
		"config-path": *configPath,
		"logLevel":    logLevel,
		"nwa-server":  config.Nwa.Server,
	}).Info("Starting")

	nwaAgent, err := agent.NewNwaAgent(config, log)
	if err != nil {
		log.Error("Agent setup failed")
		panic(err.Error())
	}

	stopCh := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(stopCh)
	}()

	nwaAgent.Run(stopCh)
}
