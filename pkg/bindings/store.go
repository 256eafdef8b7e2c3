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

// Persistence of the flat per-tenant NWA binding record.  A binding is
// a single string-keyed mapping scoped by (tenant id, NWA tenant id);
// the reconciler reads it, mutates it locally and writes it back as a
// whole.  Set applies the key-level diff between the stored and the new
// mapping in one atomic step.
package bindings

import (
	"errors"
	"strconv"
	"sync"
)

// Mapping is one tenant binding: value types are string or bool after
// coercion.  Integers written by callers are stored as their decimal
// string form.
type Mapping map[string]interface{}

var ErrBindingExists = errors.New("tenant binding already exists")
var ErrBindingNotFound = errors.New("tenant binding not found")

type Store interface {
	Get(tenantID, nwaTenantID string) (Mapping, error)
	Add(tenantID, nwaTenantID string, value Mapping) error
	Set(tenantID, nwaTenantID string, value Mapping) error
	Delete(tenantID, nwaTenantID string) error
}

type bindingKey struct {
	TenantID    string
	NwaTenantID string
}

// MemStore is the in-memory store backing the binding server process.
// All values are kept in their text form; coercion happens on read.
type MemStore struct {
	mutex sync.Mutex
	rows  map[bindingKey]map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{
		rows: make(map[bindingKey]map[string]string),
	}
}

// encodeValue renders a caller-supplied value into its stored text
// form.  Booleans use the legacy True/False spelling.
func encodeValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(v)
	case float64:
		// JSON decoding turns integers into float64
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

// decodeValue coerces stored text back into the caller-visible value.
// Both the canonical True/False and the legacy 1/0 spellings round-trip
// to booleans; anything else passes through unchanged.
func decodeValue(value string) interface{} {
	switch value {
	case "True", "1":
		return true
	case "False", "0":
		return false
	default:
		return value
	}
}

func (s *MemStore) Get(tenantID, nwaTenantID string) (Mapping, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	row, ok := s.rows[bindingKey{tenantID, nwaTenantID}]
	if !ok {
		return nil, ErrBindingNotFound
	}
	value := make(Mapping, len(row))
	for k, v := range row {
		value[k] = decodeValue(v)
	}
	return value, nil
}

func (s *MemStore) Add(tenantID, nwaTenantID string, value Mapping) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := bindingKey{tenantID, nwaTenantID}
	if _, ok := s.rows[key]; ok {
		return ErrBindingExists
	}
	row := make(map[string]string, len(value))
	for k, v := range value {
		row[k] = encodeValue(v)
	}
	s.rows[key] = row
	return nil
}

// Set reconciles the stored row against the new mapping: changed keys
// are updated, new keys inserted and keys absent from the new mapping
// deleted.  The whole diff is applied under one lock so a reader can
// never observe a half-updated binding.
func (s *MemStore) Set(tenantID, nwaTenantID string, value Mapping) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := bindingKey{tenantID, nwaTenantID}
	row, ok := s.rows[key]
	if !ok {
		return ErrBindingNotFound
	}

	for k, v := range value {
		encoded := encodeValue(v)
		if old, found := row[k]; !found || old != encoded {
			row[k] = encoded
		}
	}
	for k := range row {
		if _, found := value[k]; !found {
			delete(row, k)
		}
	}
	return nil
}

func (s *MemStore) Delete(tenantID, nwaTenantID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := bindingKey{tenantID, nwaTenantID}
	if _, ok := s.rows[key]; !ok {
		return ErrBindingNotFound
	}
	delete(s.rows, key)
	return nil
}
