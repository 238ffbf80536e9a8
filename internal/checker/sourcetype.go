package checker

import "strings"

// SourceType records which evidence categories a verdict relied on. The set of
// valid values is closed: the three base sources and their combinations.
type SourceType string

const (
	SourceReference       SourceType = "reference"
	SourceWebSearch       SourceType = "web_search"
	SourceLLM             SourceType = "llm"
	SourceReferenceWeb    SourceType = "reference+web_search"
	SourceReferenceLLM    SourceType = "reference+llm"
	SourceWebLLM          SourceType = "web_search+llm"
	SourceReferenceWebLLM SourceType = "reference+web_search+llm"
)

// ComposeSourceType builds the canonical SourceType for a contributor set.
// An empty set maps to llm: a verdict always rests on at least the model.
func ComposeSourceType(reference, webSearch, llm bool) SourceType {
	switch {
	case reference && webSearch && llm:
		return SourceReferenceWebLLM
	case reference && webSearch:
		return SourceReferenceWeb
	case reference && llm:
		return SourceReferenceLLM
	case webSearch && llm:
		return SourceWebLLM
	case reference:
		return SourceReference
	case webSearch:
		return SourceWebSearch
	default:
		return SourceLLM
	}
}

// parseSourceClaims reads a model-declared source_type string and reports
// which base sources it names. Unknown tokens are ignored rather than passed
// through.
func parseSourceClaims(raw string) (reference, webSearch, llm bool) {
	for _, token := range strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == '+' || r == ',' || r == ' ' || r == '/'
	}) {
		switch strings.TrimSpace(token) {
		case "reference":
			reference = true
		case "web_search", "websearch", "web":
			webSearch = true
		case "llm", "model":
			llm = true
		}
	}
	return reference, webSearch, llm
}
