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

package fieldmap

import "k8s.io/utils/ptr"

// Framework holds the fields the alerting framework populates on every alert.
// Its component template is always composed last.
var Framework = FieldMap{
	"@timestamp":                          {Type: "date", Required: true},
	"event.action":                        {Type: "keyword"},
	"event.kind":                          {Type: "keyword"},
	"kibana.alert.action_group":           {Type: "keyword"},
	"kibana.alert.duration.us":            {Type: "long"},
	"kibana.alert.end":                    {Type: "date"},
	"kibana.alert.flapping":               {Type: "boolean"},
	"kibana.alert.instance.id":            {Type: "keyword", Required: true},
	"kibana.alert.last_detected":          {Type: "date"},
	"kibana.alert.maintenance_window_ids": {Type: "keyword", Array: true},
	"kibana.alert.rule.category":          {Type: "keyword", Required: true},
	"kibana.alert.rule.consumer":          {Type: "keyword", Required: true},
	"kibana.alert.rule.execution.uuid":    {Type: "keyword"},
	"kibana.alert.rule.name":              {Type: "keyword", Required: true},
	"kibana.alert.rule.parameters":        {Type: "flattened", IgnoreAbove: 4096},
	"kibana.alert.rule.producer":          {Type: "keyword", Required: true},
	"kibana.alert.rule.revision":          {Type: "long"},
	"kibana.alert.rule.rule_type_id":      {Type: "keyword", Required: true},
	"kibana.alert.rule.tags":              {Type: "keyword", Array: true},
	"kibana.alert.rule.uuid":              {Type: "keyword", Required: true},
	"kibana.alert.start":                  {Type: "date"},
	"kibana.alert.status":                 {Type: "keyword", Required: true},
	"kibana.alert.time_range":             {Type: "date_range", Format: "epoch_millis||strict_date_optional_time"},
	"kibana.alert.uuid":                   {Type: "keyword", Required: true},
	"kibana.alert.workflow_status":        {Type: "keyword"},
	"kibana.space_ids":                    {Type: "keyword", Array: true, Required: true},
	"kibana.version":                      {Type: "version"},
	"tags":                                {Type: "keyword", Array: true},
}

// LegacyAlert holds the fields older rule types wrote before the framework
// schema existed. Contexts opt in with UseLegacyAlerts.
var LegacyAlert = FieldMap{
	"ecs.version":                         {Type: "keyword"},
	"kibana.alert.evaluation.threshold":   {Type: "scaled_float", ScalingFactor: 100},
	"kibana.alert.evaluation.value":       {Type: "scaled_float", ScalingFactor: 100},
	"kibana.alert.reason":                 {Type: "keyword"},
	"kibana.alert.risk_score":             {Type: "float"},
	"kibana.alert.rule.author":            {Type: "keyword"},
	"kibana.alert.rule.created_at":        {Type: "date"},
	"kibana.alert.rule.created_by":        {Type: "keyword"},
	"kibana.alert.rule.description":       {Type: "keyword"},
	"kibana.alert.rule.enabled":           {Type: "keyword"},
	"kibana.alert.rule.interval":          {Type: "keyword"},
	"kibana.alert.severity":               {Type: "keyword"},
	"kibana.alert.suppression.docs_count": {Type: "long"},
}

// ECS is the subset of the Elastic Common Schema shared by contexts that set
// UseECS. Overlapping framework fields are intentionally declared with
// different attributes; the framework definition wins when composed.
var ECS = FieldMap{
	"agent.name":     {Type: "keyword", IgnoreAbove: 1024},
	"ecs.version":    {Type: "keyword", IgnoreAbove: 1024},
	"error.message":  {Type: "match_only_text"},
	"event.action":   {Type: "keyword", IgnoreAbove: 1024},
	"event.dataset":  {Type: "keyword", IgnoreAbove: 1024},
	"event.kind":     {Type: "keyword", IgnoreAbove: 1024},
	"host.hostname":  {Type: "keyword", IgnoreAbove: 1024},
	"host.id":        {Type: "keyword", IgnoreAbove: 1024},
	"host.name":      {Type: "keyword", IgnoreAbove: 1024},
	"labels":         {Type: "object"},
	"message":        {Type: "match_only_text"},
	"service.name":   {Type: "keyword", IgnoreAbove: 1024},
	"source.ip":      {Type: "ip"},
	"tags":           {Type: "keyword", Array: true, IgnoreAbove: 1024},
	"user.name":      {Type: "keyword", IgnoreAbove: 1024},
	"user.id":        {Type: "keyword", IgnoreAbove: 1024},
	"url.original":   {Type: "wildcard", Index: ptr.To(true)},
	"destination.ip": {Type: "ip"},
	"process.pid":    {Type: "long"},
	"process.name":   {Type: "keyword", IgnoreAbove: 1024},
}
