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
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/openstack-archive/networking-nec-sub001/pkg/bindings"
)

func main() {
	log := logrus.New()

	listenAddress := flag.String("listen-address", ":9797",
		"Address to serve the tenant binding RPC service on")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		panic(err.Error())
	}
	log.Level = level

	server := bindings.NewBindingServer(func() (net.Listener, error) {
		return net.Listen("tcp", *listenAddress)
	}, bindings.NewMemStore(), log)

	log.WithFields(logrus.Fields{
		"listen-address": *listenAddress,
	}).Info("Starting tenant binding server")

	stopCh := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(stopCh)
	}()

	server.Run(stopCh)
}
