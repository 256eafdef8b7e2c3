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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// signer produces the SharedKeyLite authorization header the NWA
// server validates: an HMAC-SHA256 over the request date and path.
type signer struct {
	keyID  string
	secret []byte
}

func newSigner(keyID, secretKey string) (*signer, error) {
	if keyID == "" || secretKey == "" {
		return nil, errors.New("access key id and secret key are required")
	}
	return &signer{keyID: keyID, secret: []byte(secretKey)}, nil
}

func (s *signer) sign(date, path string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(date))
	mac.Write([]byte(path))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (s *signer) authorization(date, path string) string {
	return fmt.Sprintf("SharedKeyLite %s:%s", s.keyID, s.sign(date, path))
}
