package domain

// AuditLogger records auditable review actions.
type AuditLogger interface {
	Log(action string, actor string, metadata map[string]any) error
}

// ArtifactSink receives debugging and audit byproducts such as merged
// JSON and the final report. Implementations decide where, or whether,
// content is stored.
type ArtifactSink interface {
	Record(name, content string) error
}
