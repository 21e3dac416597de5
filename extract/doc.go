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


// Package extract parses uploaded CSV and JSON files into structured
// records for ingestion.
//
// Extraction is a pure function of its inputs: the same file bytes always
// produce the same record sequence, in source order. CSV cells are coerced
// to typed scalars (bool, int64, float64, string) and blank cells are
// dropped rather than stored as empty strings.
package extract
