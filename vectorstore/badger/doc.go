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


// Package badger implements vectorstore.Store on an embedded BadgerDB.
//
// Entries are keyed by triple ID under a scope-segmented prefix, so a
// scoped query only scans its own conversation's vectors. Similarity is
// cosine over normalized vectors; filtering happens in-process against
// the stored metadata. Suitable for local and single-node deployments;
// server deployments use the pgvector backend.
package badger
