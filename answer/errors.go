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


package answer

import "errors"

var (
	// ErrGatewayRequired is returned when a vector store gateway is not provided.
	ErrGatewayRequired = errors.New("vector store gateway required")

	// ErrChatterRequired is returned when a chat service is not provided.
	ErrChatterRequired = errors.New("chat service required")

	// ErrRepositoryRequired is returned when a conversation repository is not provided.
	ErrRepositoryRequired = errors.New("conversation repository required")

	// ErrEmptyQuestion is returned when the question is blank.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrRetrievalFailed is returned when the vector store cannot serve
	// the query. Raised before any token is streamed.
	ErrRetrievalFailed = errors.New("retrieval failed")
)
