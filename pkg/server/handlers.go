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

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/NVIDIA/alertsd/pkg/coordinator"
	"github.com/NVIDIA/alertsd/pkg/errors"
	"github.com/NVIDIA/alertsd/pkg/fieldmap"
	"github.com/NVIDIA/alertsd/pkg/serializer"
)

const (
	paramContext   = "context"
	queryNamespace = "namespace"
	queryWait      = "wait"
)

// handleListContexts handles GET /v1/contexts
func (s *Server) handleListContexts(w http.ResponseWriter, _ *http.Request) {
	names := s.coord.Contexts()
	resp := ContextListResponse{
		Common:        s.coord.CommonState(),
		Contexts:      make([]ContextSummary, 0, len(names)),
		Installations: s.coord.Status(),
	}
	for _, name := range names {
		def, ok := s.coord.Lookup(name)
		if !ok {
			continue
		}
		resp.Contexts = append(resp.Contexts, ContextSummary{
			Context:         def.Context,
			IsSpaceAware:    def.IsSpaceAware,
			UseECS:          def.UseECS,
			UseLegacyAlerts: def.UseLegacyAlerts,
			SecondaryAlias:  def.SecondaryAlias,
			Fields:          len(def.Mappings.FieldMap),
		})
	}

	serializer.RespondJSON(w, http.StatusOK, resp)
}

// handleGetContext handles GET /v1/contexts/{context}
func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue(paramContext)
	def, ok := s.coord.Lookup(name)
	if !ok {
		s.writeUnregistered(w, r, name)
		return
	}

	patterns, err := s.coord.Patterns(name, "")
	if err != nil {
		WriteErrorFromErr(w, r, err, nil)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, ContextResponse{
		Definition:    def,
		Patterns:      patterns,
		Installations: s.installationsOf(name),
	})
}

// handleContextStatus handles GET /v1/contexts/{context}/status. Asking for
// an unseen namespace provisions it. The handler waits for the outcome up to
// the status timeout, or the wait query parameter when it is shorter, and
// answers 202 with the current state if the installation is still running.
// An invalid namespace is rejected with 400 before anything is provisioned.
func (s *Server) handleContextStatus(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue(paramContext)
	def, ok := s.coord.Lookup(name)
	if !ok {
		s.writeUnregistered(w, r, name)
		return
	}

	wait := s.config.StatusTimeout
	if v := r.URL.Query().Get(queryWait); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			WriteError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidRequest,
				"wait must be a non-negative duration", false, map[string]any{queryWait: v})
			return
		}
		wait = min(wait, d)
	}

	namespace := coordinator.ResolveNamespace(def, r.URL.Query().Get(queryNamespace))
	patterns, err := s.coord.Patterns(name, namespace)
	if err != nil {
		WriteErrorFromErr(w, r, err, nil)
		return
	}

	future := s.coord.ContextInitialization(name, namespace)

	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()

	resp := StatusResponse{
		Context:   name,
		Namespace: namespace,
		Patterns:  patterns,
	}

	outcome, err := future.Wait(ctx)
	if err != nil {
		resp.State = s.stateOf(name, namespace)
		serializer.RespondJSON(w, http.StatusAccepted, resp)
		return
	}

	resp.Result = outcome.Result
	resp.Error = outcome.Error
	resp.Code = outcome.Code
	resp.State = coordinator.StateSucceeded
	if !outcome.Result {
		resp.State = coordinator.StateFailed
	}
	serializer.RespondJSON(w, http.StatusOK, resp)
}

// handleContextMappings handles GET /v1/contexts/{context}/mappings
func (s *Server) handleContextMappings(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue(paramContext)
	fields, err := s.coord.EffectiveFieldMap(name)
	if err != nil {
		WriteErrorFromErr(w, r, err, map[string]any{paramContext: name})
		return
	}

	serializer.RespondJSON(w, http.StatusOK, MappingsResponse{
		Context: name,
		Fields:  fields,
		Mapping: fieldmap.ToMapping(fields),
	})
}

func (s *Server) writeUnregistered(w http.ResponseWriter, r *http.Request, name string) {
	o, _ := s.coord.ContextInitialization(name, "").Outcome()
	WriteError(w, r, http.StatusNotFound, errors.ErrCodeUnregisteredContext, o.Error, false,
		map[string]any{paramContext: name})
}

func (s *Server) installationsOf(name string) []coordinator.TaskStatus {
	out := []coordinator.TaskStatus{}
	for _, st := range s.coord.Status() {
		if st.Context == name {
			out = append(out, st)
		}
	}
	return out
}

func (s *Server) stateOf(name, namespace string) coordinator.State {
	for _, st := range s.coord.Status() {
		if st.Context == name && st.Namespace == namespace {
			return st.State
		}
	}
	return coordinator.StatePending
}
