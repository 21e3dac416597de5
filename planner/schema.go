// Copyright 2025 Poiesic Systems
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


package planner

import "fmt"

const (
	minSuffix = "_min"
	maxSuffix = "_max"
)

// FieldSchema declares which record fields the planner may filter on.
// Numeric fields expose range bounds to the model, categorical fields
// expose exact string matches.
type FieldSchema struct {
	Numeric     []string
	Categorical []string
}

// DefaultFieldSchema covers common fields of tabular listing data.
// Callers with known data shapes should provide their own schema.
func DefaultFieldSchema() FieldSchema {
	return FieldSchema{
		Numeric:     []string{"bedrooms", "bathrooms", "price", "area_sqm", "year_built"},
		Categorical: []string{"city", "neighborhood", "property_type"},
	}
}

// toolParameters builds the JSON schema for the filter derivation tool.
// Each numeric field becomes a pair of <field>_min and <field>_max
// number properties, each categorical field a string property.
func (s FieldSchema) toolParameters() map[string]any {
	properties := map[string]any{}
	for _, field := range s.Numeric {
		properties[field+minSuffix] = map[string]any{
			"type":        "number",
			"description": fmt.Sprintf("Lower bound on %s, inclusive", field),
		}
		properties[field+maxSuffix] = map[string]any{
			"type":        "number",
			"description": fmt.Sprintf("Upper bound on %s, inclusive", field),
		}
	}
	for _, field := range s.Categorical {
		properties[field] = map[string]any{
			"type":        "string",
			"description": fmt.Sprintf("Exact value of %s", field),
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}
