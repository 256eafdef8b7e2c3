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

// Client for the NWA orchestrator REST/workflow API.  Every mutating
// operation is an asynchronous workflow: a POST starts it and returns
// an execution id, then the execution endpoint is polled until the
// workflow leaves RUNNING or the retry budget is spent.
package nwaapi

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const apiVersion = "2.0.2.1.201502"

const (
	StatusRunning = "RUNNING"
	StatusSucceed = "SUCCEED"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

const (
	defaultPollingInterval = 2
	defaultPollingRetries  = 60
)

type Config struct {
	// NWA server base URL, e.g. https://nwa.example.com:12081
	Server string `json:"server,omitempty"`

	// Credentials for SharedKeyLite request signing
	AccessKeyID string `json:"access-key-id,omitempty"`
	SecretKey   string `json:"secret-key,omitempty"`

	// Workflow polling interval in seconds
	PollingInterval int `json:"polling-interval,omitempty"`

	// Number of status polls before giving up on a workflow
	PollingRetries int `json:"polling-retries,omitempty"`

	// Skip TLS certificate verification
	Insecure bool `json:"insecure,omitempty"`
}

// WorkflowResult is the terminal (or last observed) state of one
// workflow execution.
type WorkflowResult struct {
	HTTPStatus  int
	ExecutionID string
	Status      string
	Progress    string
	ResultData  map[string]interface{}
}

func (r *WorkflowResult) Succeeded() bool {
	return r.Status == StatusSucceed || r.Status == StatusSuccess
}

func (r *WorkflowResult) Failed() bool {
	return r.Status == StatusFailed
}

// Running reports a workflow that never reached a terminal status
// within the polling budget.  The vendor-side workflow keeps running;
// the caller must treat the outcome as unknown, not as failure.
func (r *WorkflowResult) Running() bool {
	return r.Status == StatusRunning
}

type Client struct {
	server string
	client *http.Client
	signer *signer
	log    *logrus.Logger

	pollingInterval time.Duration
	pollingRetries  int

	Tenant *TenantClient
	L2     *L2Client
	L3     *L3Client
	LBaaS  *LBClient
}

func NewClient(log *logrus.Logger, config *Config) (*Client, error) {
	signer, err := newSigner(config.AccessKeyID, config.SecretKey)
	if err != nil {
		return nil, err
	}

	interval := config.PollingInterval
	if interval == 0 {
		interval = defaultPollingInterval
	}
	retries := config.PollingRetries
	if retries == 0 {
		retries = defaultPollingRetries
	}

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: config.Insecure},
	}
	c := &Client{
		server:          config.Server,
		client:          &http.Client{Transport: tr, Timeout: 5 * time.Minute},
		signer:          signer,
		log:             log,
		pollingInterval: time.Duration(interval) * time.Second,
		pollingRetries:  retries,
	}
	c.Tenant = &TenantClient{c}
	c.L2 = &L2Client{c}
	c.L3 = &L3Client{c}
	c.LBaaS = &LBClient{c}
	return c, nil
}

// do issues one signed request and decodes the JSON response body.
// Connection failures and undecodable bodies raise a TransportError;
// a non-2xx status with a decodable body is returned to the caller to
// branch on.
func (c *Client) do(method, path string, body interface{}) (int, map[string]interface{}, error) {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, c.server+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	date := time.Now().UTC().Format(http.TimeFormat)
	req.Header.Set("Authorization", c.signer.authorization(date, path))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Date", date)
	req.Header.Set("X-UMF-API-Version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Host: c.server, Err: err}
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	var data map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&data)
	if err != nil && err != io.EOF {
		return resp.StatusCode, nil,
			&TransportError{Host: c.server, Status: resp.StatusCode, Err: err}
	}
	return resp.StatusCode, data, nil
}

func (c *Client) post(path string, body interface{}) (int, map[string]interface{}, error) {
	return c.do(http.MethodPost, path, body)
}

func (c *Client) get(path string) (int, map[string]interface{}, error) {
	return c.do(http.MethodGet, path, nil)
}

func (c *Client) delete(path string) (int, map[string]interface{}, error) {
	return c.do(http.MethodDelete, path, nil)
}

func workflowPath(name string) string {
	return fmt.Sprintf("/umf/workflow/%s/execution", name)
}

func executionPath(executionID string) string {
	return fmt.Sprintf("/umf/workflowinstance/%s", executionID)
}

func stringField(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

// workflow kicks off the named workflow and polls it to completion.
func (c *Client) workflow(name string, body interface{}) (*WorkflowResult, error) {
	c.log.WithFields(logrus.Fields{
		"workflow": name,
	}).Debug("Starting workflow")

	status, data, err := c.post(workflowPath(name), body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &TransportError{Host: c.server, Status: status,
			Err: fmt.Errorf("workflow %s kickoff rejected", name)}
	}
	executionID := stringField(data, "executionid")
	if executionID == "" {
		return nil, &TransportError{Host: c.server, Status: status,
			Err: fmt.Errorf("workflow %s returned no execution id", name)}
	}
	res, err := c.waitWorkflow(executionID)
	if err != nil {
		return nil, err
	}
	if res.Failed() {
		code, known := res.VendorErrorCode()
		c.log.WithFields(logrus.Fields{
			"workflow":    name,
			"executionid": executionID,
			"errorCode":   code,
			"known":       known,
			"message":     VendorErrorMessage(code),
		}).Error("Workflow failed")
	}
	return res, nil
}

// waitWorkflow polls the execution endpoint until the workflow leaves
// RUNNING.  The loop runs exactly pollingRetries times; if the
// workflow is still RUNNING after that, the last observed state is
// returned rather than blocking further.  The vendor-side workflow is
// never cancelled from here.
func (c *Client) waitWorkflow(executionID string) (*WorkflowResult, error) {
	res := &WorkflowResult{ExecutionID: executionID, Status: StatusRunning}
	for i := 0; i < c.pollingRetries; i++ {
		time.Sleep(c.pollingInterval)

		status, data, err := c.get(executionPath(executionID))
		if err != nil {
			return nil, err
		}
		res = &WorkflowResult{
			HTTPStatus:  status,
			ExecutionID: executionID,
			Status:      stringField(data, "status"),
			Progress:    stringField(data, "progress"),
		}
		if rd, ok := data["resultdata"].(map[string]interface{}); ok {
			res.ResultData = rd
		}
		if res.Status != StatusRunning {
			return res, nil
		}
	}
	c.log.WithFields(logrus.Fields{
		"executionid": executionID,
		"retries":     c.pollingRetries,
	}).Warning("Workflow still running after polling budget")
	return res, nil
}
