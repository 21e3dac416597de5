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


// Package vectorstore defines the vector index abstraction and the
// gateway the pipeline talks to.
//
// The Store interface is a black box with upsert and query semantics:
// upserts are idempotent by triple ID, queries return ranked nearest
// neighbors. Every query filter built here carries a mandatory
// scope-equality clause gating reads to the owning conversation; the
// clause cannot be overridden by derived filters.
//
// Implementation backends:
//
//   - vectorstore/badger: embedded BadgerDB backend with in-process scan
//   - vectorstore/pgvector: PostgreSQL backend using the pgvector extension
package vectorstore
