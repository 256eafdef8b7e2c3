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
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

type RpcBindingArgs struct {
	TenantID    string
	NwaTenantID string
	Value       Mapping
}

type RpcBindingReply struct {
	Status string
	Value  Mapping
}

// BindingService exposes the store over net/rpc.  Domain failures
// (missing or duplicate binding) are reported through the Status field
// rather than as RPC errors so callers can branch on them.
type BindingService struct {
	store Store
}

func NewBindingService(store Store) *BindingService {
	return &BindingService{store: store}
}

func (s *BindingService) GetNwaTenantBinding(args *RpcBindingArgs,
	reply *RpcBindingReply) error {
	value, err := s.store.Get(args.TenantID, args.NwaTenantID)
	if err != nil {
		reply.Status = StatusFailed
		return nil
	}
	reply.Status = StatusSuccess
	reply.Value = value
	return nil
}

func (s *BindingService) AddNwaTenantBinding(args *RpcBindingArgs,
	reply *RpcBindingReply) error {
	if err := s.store.Add(args.TenantID, args.NwaTenantID, args.Value); err != nil {
		reply.Status = StatusFailed
		return nil
	}
	reply.Status = StatusSuccess
	return nil
}

func (s *BindingService) SetNwaTenantBinding(args *RpcBindingArgs,
	reply *RpcBindingReply) error {
	if err := s.store.Set(args.TenantID, args.NwaTenantID, args.Value); err != nil {
		reply.Status = StatusFailed
		return nil
	}
	reply.Status = StatusSuccess
	return nil
}

func (s *BindingService) DeleteNwaTenantBinding(args *RpcBindingArgs,
	reply *RpcBindingReply) error {
	if err := s.store.Delete(args.TenantID, args.NwaTenantID); err != nil {
		reply.Status = StatusFailed
		return nil
	}
	reply.Status = StatusSuccess
	return nil
}

func NewBindingRpcServer(store Store) (*rpc.Server, error) {
	server := rpc.NewServer()
	err := server.RegisterName("Bindings", NewBindingService(store))
	if err != nil {
		return nil, err
	}
	return server, nil
}

type ListenFunc func() (net.Listener, error)
type ConnectFunc func() (net.Conn, error)

// BindingServer accepts connections and serves the binding RPC service
// on each with a JSON codec.
type BindingServer struct {
	listenFunc ListenFunc
	store      Store
	log        *logrus.Entry
}

func NewBindingServer(lf ListenFunc, store Store,
	log *logrus.Logger) *BindingServer {
	return &BindingServer{
		listenFunc: lf,
		store:      store,
		log:        log.WithField("ctx", "BindingServer"),
	}
}

func (s *BindingServer) Run(stopCh <-chan struct{}) {
	var cancelled atomic.Bool
	var savedListener atomic.Value
	go func() {
		<-stopCh
		cancelled.Store(true)
		if l := savedListener.Load(); l != nil {
			l.(net.Listener).Close()
		}
	}()

	for !cancelled.Load() {
		listener, err := s.listenFunc()
		if err != nil {
			s.log.Error("Unable to listen for connections: ", err)
			return
		}
		savedListener.Store(listener)

		server, err := NewBindingRpcServer(s.store)
		if err != nil {
			s.log.Error("Unable to create RPC server: ", err)
			listener.Close()
			return
		}
		for !cancelled.Load() {
			conn, err := listener.Accept()
			if err != nil {
				if !cancelled.Load() {
					s.log.Error("Failed to accept connection: ", err)
				}
				break
			}
			s.log.WithField("remote", conn.RemoteAddr().String()).
				Debug("Accepted new connection")
			go server.ServeCodec(jsonrpc.NewServerCodec(conn))
		}
		listener.Close()
	}
}

// RpcStore implements Store over a binding server connection, redialing
// on demand when the connection drops.
type RpcStore struct {
	connectFunc ConnectFunc
	log         *logrus.Entry

	mutex  sync.Mutex
	client *rpc.Client
}

func NewRpcStore(cf ConnectFunc, log *logrus.Logger) *RpcStore {
	return &RpcStore{
		connectFunc: cf,
		log:         log.WithField("ctx", "RpcStore"),
	}
}

func (s *RpcStore) getClient() (*rpc.Client, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	conn, err := s.connectFunc()
	if err != nil {
		return nil, err
	}
	s.client = jsonrpc.NewClient(conn)
	return s.client, nil
}

func (s *RpcStore) dropClient() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}

func (s *RpcStore) call(method string, args *RpcBindingArgs) (*RpcBindingReply, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}
	reply := &RpcBindingReply{}
	err = client.Call(method, args, reply)
	if err != nil {
		s.log.Error("RPC call ", method, " failed: ", err)
		s.dropClient()
		return nil, err
	}
	return reply, nil
}

func (s *RpcStore) Get(tenantID, nwaTenantID string) (Mapping, error) {
	reply, err := s.call("Bindings.GetNwaTenantBinding",
		&RpcBindingArgs{TenantID: tenantID, NwaTenantID: nwaTenantID})
	if err != nil {
		return nil, err
	}
	if reply.Status != StatusSuccess {
		return nil, ErrBindingNotFound
	}
	return reply.Value, nil
}

func (s *RpcStore) Add(tenantID, nwaTenantID string, value Mapping) error {
	reply, err := s.call("Bindings.AddNwaTenantBinding",
		&RpcBindingArgs{TenantID: tenantID, NwaTenantID: nwaTenantID,
			Value: value})
	if err != nil {
		return err
	}
	if reply.Status != StatusSuccess {
		return ErrBindingExists
	}
	return nil
}

func (s *RpcStore) Set(tenantID, nwaTenantID string, value Mapping) error {
	reply, err := s.call("Bindings.SetNwaTenantBinding",
		&RpcBindingArgs{TenantID: tenantID, NwaTenantID: nwaTenantID,
			Value: value})
	if err != nil {
		return err
	}
	if reply.Status != StatusSuccess {
		return ErrBindingNotFound
	}
	return nil
}

func (s *RpcStore) Delete(tenantID, nwaTenantID string) error {
	reply, err := s.call("Bindings.DeleteNwaTenantBinding",
		&RpcBindingArgs{TenantID: tenantID, NwaTenantID: nwaTenantID})
	if err != nil {
		return err
	}
	if reply.Status != StatusSuccess {
		return ErrBindingNotFound
	}
	return nil
}

func (s *RpcStore) Close() {
	s.dropClient()
}
