// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/NVIDIA/alertsd/pkg/backend"
)

// errorCause is the structured error returned by the search engine.
type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type errorResponse struct {
	Error  json.RawMessage `json:"error"`
	Status int             `json:"status"`
}

// parseError extracts the error type and reason from a response body. The
// error field is either an object or a plain string.
func parseError(body []byte) errorCause {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || len(er.Error) == 0 {
		return errorCause{Reason: strings.TrimSpace(string(body))}
	}
	var cause errorCause
	if err := json.Unmarshal(er.Error, &cause); err == nil {
		return cause
	}
	var msg string
	if err := json.Unmarshal(er.Error, &msg); err == nil {
		return errorCause{Reason: msg}
	}
	return errorCause{Reason: string(er.Error)}
}

// check turns a transport error or an error response into an error wrapping
// the matching backend sentinel.
func check(op, name string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, name, err)
	}
	if !resp.IsError() {
		return nil
	}

	cause := parseError(resp.Body())
	msg := fmt.Sprintf("%s %s: status %d", op, name, resp.StatusCode())
	if cause.Type != "" {
		msg += ": " + cause.Type
	}
	if cause.Reason != "" {
		msg += ": " + cause.Reason
	}

	switch {
	case cause.Type == "resource_already_exists_exception":
		return fmt.Errorf("%s: %w", msg, backend.ErrAlreadyExists)
	case cause.Type == "illegal_argument_exception" && strings.Contains(cause.Reason, "total fields"):
		return fmt.Errorf("%s: %w", msg, backend.ErrFieldLimitExceeded)
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, backend.ErrNotFound)
	default:
		return errors.New(msg)
	}
}
