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
	"fmt"
	"net"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openstack-archive/networking-nec-sub001/pkg/bindings"
)

var serverAddress string

func newStore() bindings.Store {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return bindings.NewRpcStore(func() (net.Conn, error) {
		return net.Dial("tcp", serverAddress)
	}, log)
}

func readMapping(path string) (bindings.Mapping, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = os.ReadFile("/dev/stdin")
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var value bindings.Mapping
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func printMapping(value bindings.Mapping) {
	out, _ := json.MarshalIndent(value, "", "  ")
	fmt.Println(string(out))
}

var rootCmd = &cobra.Command{
	Use:   "nwactl",
	Short: "Inspect and edit NWA tenant bindings",
	Long: `nwactl talks to the tenant binding server used by the NWA
agent and lets an operator inspect or repair tenant bindings.`,
}

var getBindingCmd = &cobra.Command{
	Use:   "get-binding <tenant-id> <nwa-tenant-id>",
	Short: "Print a tenant binding",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		value, err := newStore().Get(args[0], args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		printMapping(value)
	},
}

var addBindingCmd = &cobra.Command{
	Use:   "add-binding <tenant-id> <nwa-tenant-id> <mapping-file>",
	Short: "Create a tenant binding from a JSON mapping file ('-' for stdin)",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		value, err := readMapping(args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := newStore().Add(args[0], args[1], value); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var setBindingCmd = &cobra.Command{
	Use:   "set-binding <tenant-id> <nwa-tenant-id> <mapping-file>",
	Short: "Replace a tenant binding with a JSON mapping file ('-' for stdin)",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		value, err := readMapping(args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := newStore().Set(args[0], args[1], value); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var deleteBindingCmd = &cobra.Command{
	Use:   "delete-binding <tenant-id> <nwa-tenant-id>",
	Short: "Delete a tenant binding",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := newStore().Delete(args[0], args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&serverAddress, "server",
		"localhost:9797", "Address of the tenant binding server")
	rootCmd.AddCommand(getBindingCmd)
	rootCmd.AddCommand(addBindingCmd)
	rootCmd.AddCommand(setBindingCmd)
	rootCmd.AddCommand(deleteBindingCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
