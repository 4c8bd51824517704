package review

import "encoding/json"

// Category is the threat-model area a suggestion applies to.
type Category string

const (
	CategoryTrustBoundary Category = "trust_boundary"
	CategoryDFD           Category = "dfd"
	CategorySTRIDE        Category = "stride"
)

// Suggestion is one proposed change from the evaluator.
type Suggestion struct {
	Category        Category `json:"category"`
	Location        string   `json:"location"`
	Issue           string   `json:"issue"`
	Rationale       string   `json:"rationale"`
	SuggestedChange string   `json:"suggested_change"`
}

// SuggestionList is either "no changes" or an ordered list of suggestions.
// Raw keeps the array exactly as the model returned it; Items is the
// best-effort typed view and may be shorter when entries do not decode.
type SuggestionList struct {
	none  bool
	Raw   json.RawMessage
	Items []Suggestion
}

// NoChanges is the sentinel for a converged critique.
func NoChanges() SuggestionList {
	return SuggestionList{none: true}
}

// NewSuggestionList wraps a JSON array. Entries that do not decode as
// Suggestion are kept in Raw and skipped in Items.
func NewSuggestionList(raw json.RawMessage) SuggestionList {
	list := SuggestionList{Raw: raw}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return list
	}
	for _, e := range entries {
		var s Suggestion
		if err := json.Unmarshal(e, &s); err == nil {
			list.Items = append(list.Items, s)
		}
	}
	return list
}

// None reports whether the list is the "no changes" sentinel.
func (l SuggestionList) None() bool {
	return l.none
}

// Len is the number of entries in the raw array.
func (l SuggestionList) Len() int {
	if l.none {
		return 0
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(l.Raw, &entries); err != nil {
		return len(l.Items)
	}
	return len(entries)
}

// Text is the suggestions as they are appended to the next round's prompt.
func (l SuggestionList) Text() string {
	if l.none {
		return "None"
	}
	return string(l.Raw)
}
