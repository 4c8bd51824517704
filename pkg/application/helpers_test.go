package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	domainai "github.com/felixgeelhaar/sdra/pkg/domain/ai"
)

// recordingSink keeps every artifact in memory.
type recordingSink struct {
	mu        sync.Mutex
	names     []string
	artifacts map[string]string
	err       error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{artifacts: map[string]string{}}
}

func (s *recordingSink) Record(name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	s.artifacts[name] = content
	return s.err
}

// cancellingProvider cancels the run from inside its own call, the way a
// user interrupt lands while a model is still answering.
type cancellingProvider struct {
	cancel context.CancelFunc
}

func (p cancellingProvider) ID() string { return "mock:cancel" }

func (p cancellingProvider) Complete(ctx context.Context, _ domainai.CompletionRequest) (*domainai.CompletionResponse, error) {
	p.cancel()
	return nil, ctx.Err()
}

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Log(action, _ string, _ map[string]any) error {
	a.actions = append(a.actions, action)
	return nil
}

func systemText(req domainai.CompletionRequest) string {
	for _, m := range req.Messages {
		if m.Role == domainai.RoleSystem {
			return m.PlainText()
		}
	}
	return ""
}

func userText(req domainai.CompletionRequest) string {
	for _, m := range req.Messages {
		if m.Role == domainai.RoleUser {
			return m.PlainText()
		}
	}
	return ""
}

func isMergeRequest(req domainai.CompletionRequest) bool {
	return strings.Contains(systemText(req), "merge JSON documents")
}

func isEvaluateRequest(req domainai.CompletionRequest) bool {
	return strings.Contains(systemText(req), "principal security architect")
}

// unionThreats is a deterministic stand-in for an arbitration model. It
// concatenates the "threats" arrays of every document in a merge prompt
// and drops duplicates, keeping first-seen order.
func unionThreats(req domainai.CompletionRequest) (string, error) {
	parts := strings.Split(userText(req), "document #")
	if len(parts) < 2 {
		return "", errors.New("no documents in merge prompt")
	}

	seen := map[string]bool{}
	var threats []string
	for _, part := range parts[1:] {
		_, body, ok := strings.Cut(part, "\n")
		if !ok {
			continue
		}
		var doc struct {
			Threats []string `json:"threats"`
		}
		body = strings.TrimSpace(body)
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimSuffix(body, "```")
		if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &doc); err != nil {
			continue
		}
		for _, th := range doc.Threats {
			if !seen[th] {
				seen[th] = true
				threats = append(threats, th)
			}
		}
	}

	out, err := json.Marshal(map[string][]string{"threats": threats})
	return string(out), err
}
