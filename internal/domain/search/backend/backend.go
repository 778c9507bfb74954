package backend

// Choice identifies which catalog backend serves a search.
type Choice string

// Backend constants.
const (
	// FullText is the relevance-scored search service, used whenever free text is present.
	FullText Choice = "fulltext"
	// Structured is the paginated field-constraint query service.
	Structured Choice = "structured"
)

// For derives the backend from the free-text term: FullText iff it is non-empty.
func For(freeText string) Choice {
	if freeText != "" {
		return FullText
	}
	return Structured
}

// IsValid checks if the choice is one of the supported backends.
func (c Choice) IsValid() bool {
	return c == FullText || c == Structured
}
