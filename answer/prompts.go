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

import (
	"fmt"
	"strings"

	"github.com/poiesic/datachat/core"
	"github.com/poiesic/datachat/vectorstore"
)

const groundingPrompt = `You answer questions about data the user has uploaded.
Ground every claim in the retrieved rows below. For each row you draw
on, enumerate its attribute keys and values in your answer rather than
paraphrasing them away. If the rows do not contain the answer, say so
instead of guessing. Do not reference rows that were not retrieved.`

const noContextNote = "No matching rows were retrieved for this question."

// buildSystemPrompt assembles the grounding instructions plus the
// retrieved rows, numbered so the model can cite them.
func buildSystemPrompt(results []vectorstore.Result) string {
	var sb strings.Builder
	sb.WriteString(groundingPrompt)
	sb.WriteString("\n\nRetrieved rows:\n")

	if len(results) == 0 {
		sb.WriteString(noContextNote)
		return sb.String()
	}

	for i, result := range results {
		text, _ := result.Metadata[core.MetaText].(string)
		source, _ := result.Metadata[core.MetaSource].(string)
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(&sb, "[%d] (%s) %s\n", i+1, source, text)
	}
	return sb.String()
}
