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

package nwaapi

import (
	"fmt"
	"regexp"
	"strconv"
)

// TransportError covers connection failures, undecodable responses and
// rejected workflow kickoffs.
type TransportError struct {
	Host   string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("NWA transport error (host %s, status %d): %v",
		e.Host, e.Status, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DriverError reports a workflow that terminated FAILED, carrying the
// attempted API name.
type DriverError struct {
	API    string
	Result *WorkflowResult
}

func (e *DriverError) Error() string {
	code, _ := e.Result.VendorErrorCode()
	return fmt.Sprintf("NWA driver error: api=%s code=%d msg=%s",
		e.API, code, VendorErrorMessage(code))
}

// The NWA error report is a free-text ErrorMessage field; the numeric
// code is embedded in one of two spellings depending on which vendor
// subsystem rejected the workflow.
var errorNumberRe = regexp.MustCompile(`ErrorNumber=(\d+)`)
var reservationErrorRe = regexp.MustCompile(`ReservationErrorCode\s*=\s*(\d+)`)

const UnknownErrorCode = -1

// VendorErrorCode extracts the numeric vendor error code from the
// ErrorMessage result field.  The second return is false when no code
// could be parsed; the caller gets UnknownErrorCode in that case.
func (r *WorkflowResult) VendorErrorCode() (int, bool) {
	message := stringField(r.ResultData, "ErrorMessage")
	if message == "" {
		return UnknownErrorCode, false
	}
	for _, re := range []*regexp.Regexp{errorNumberRe, reservationErrorRe} {
		if m := re.FindStringSubmatch(message); m != nil {
			code, err := strconv.Atoi(m[1])
			if err == nil {
				return code, true
			}
		}
	}
	return UnknownErrorCode, false
}

// vendorErrorMessages maps NWA workflow error codes to operator
// readable strings.  The codes and texts mirror the vendor manual; the
// table is best effort and unknown codes fall back to a generic entry.
var vendorErrorMessages = map[int]string{
	1:   "Unknown internal error",
	101: "Input parameter validation failed",
	102: "Workflow definition not found",
	103: "Workflow execution timed out on the orchestrator",
	104: "Concurrent workflow execution rejected",
	201: "Tenant not found",
	202: "Tenant already exists",
	203: "Tenant network not found",
	204: "Tenant network already exists",
	205: "Tenant has remaining resources",
	251: "VLAN not found",
	252: "VLAN already exists",
	253: "No free VLAN id in the resource group",
	254: "VLAN is still in use",
	265: "Reservation conflict on the VLAN segment",
	266: "Reservation rollback failed",
	271: "General device not found",
	272: "General device already connected",
	281: "Tenant firewall not found",
	282: "Tenant firewall already exists",
	283: "Tenant firewall interface limit exceeded",
	284: "Firewall policy rejected",
	285: "Address group limit exceeded",
	291: "NAT entry not found",
	292: "NAT entry already exists",
	293: "Global IP address exhausted",
	301: "Load balancer not found",
	302: "Load balancer already exists",
	303: "VIP already configured",
	304: "Load balancer policy rejected",
	901: "Orchestrator database unavailable",
	902: "Device unreachable",
	903: "Device configuration session busy",
}

func VendorErrorMessage(code int) string {
	if msg, ok := vendorErrorMessages[code]; ok {
		return msg
	}
	return "unknown error code"
}
