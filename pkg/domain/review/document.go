package review

import (
	"bytes"
	"encoding/json"
)

// DocumentKind tags the variants of Document.
type DocumentKind int

const (
	// DocumentJSON holds a parsed JSON object or array.
	DocumentJSON DocumentKind = iota
	// DocumentRaw holds text that was not valid JSON.
	DocumentRaw
	// DocumentMergeFailed marks an arbitration failure.
	DocumentMergeFailed
)

func (k DocumentKind) String() string {
	switch k {
	case DocumentJSON:
		return "json"
	case DocumentRaw:
		return "raw"
	case DocumentMergeFailed:
		return "merge_failed"
	default:
		return "unknown"
	}
}

// Document is the output of a merge. It is only serialized at the model
// and artifact boundaries.
type Document struct {
	kind  DocumentKind
	json  json.RawMessage
	raw   string
	cause string
}

// EmptyDocument is the sentinel for merging zero outputs.
func EmptyDocument() Document {
	return Document{kind: DocumentJSON, json: json.RawMessage("{}")}
}

// ParseDocument returns a JSON document when text is a valid JSON object
// or array and a raw document otherwise.
func ParseDocument(text string) Document {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(trimmed) {
		return Document{kind: DocumentJSON, json: json.RawMessage(trimmed)}
	}
	return Document{kind: DocumentRaw, raw: text}
}

// MergeFailed is the sentinel for an arbitration failure.
func MergeFailed(cause error) Document {
	msg := "unknown"
	if cause != nil {
		msg = cause.Error()
	}
	return Document{kind: DocumentMergeFailed, cause: msg}
}

func (d Document) Kind() DocumentKind { return d.kind }

// Failed reports whether d is the merge failure sentinel.
func (d Document) Failed() bool { return d.kind == DocumentMergeFailed }

// Cause is the failure description for merge failures.
func (d Document) Cause() string { return d.cause }

// JSON returns the raw JSON value for DocumentJSON, or nil.
func (d Document) JSON() json.RawMessage {
	if d.kind != DocumentJSON {
		return nil
	}
	return d.json
}

// IsEmptyObject reports whether d is the "{}" sentinel.
func (d Document) IsEmptyObject() bool {
	return d.kind == DocumentJSON && string(d.json) == "{}"
}

// Text serializes the document. Failures render as a small JSON object so
// downstream prompts still receive valid JSON.
func (d Document) Text() string {
	switch d.kind {
	case DocumentJSON:
		return string(d.json)
	case DocumentRaw:
		return d.raw
	default:
		out, _ := json.Marshal(map[string]string{"error": "merge_failed", "cause": d.cause})
		return string(out)
	}
}

// Pretty returns indented JSON when possible, for artifacts.
func (d Document) Pretty() string {
	if d.kind != DocumentJSON {
		return d.Text()
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, d.json, "", "  "); err != nil {
		return string(d.json)
	}
	return buf.String()
}
