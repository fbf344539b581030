package openai

import (
	"errors"
	"io"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/jt1777/Chatbot-sub001/internal/provider"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing models")
	}
	if _, err := New(Config{APIKey: "k", Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestToChatMessages(t *testing.T) {
	t.Parallel()

	in := []provider.Message{
		{Role: provider.RoleSystem, Content: "sys"},
		{Role: provider.RoleUser, Content: "hi"},
		{Role: provider.RoleAssistant, Content: "hello"},
	}
	out := toChatMessages(in)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	wantRoles := []string{
		goopenai.ChatMessageRoleSystem,
		goopenai.ChatMessageRoleUser,
		goopenai.ChatMessageRoleAssistant,
	}
	for i, want := range wantRoles {
		if out[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, out[i].Role, want)
		}
		if out[i].Content != in[i].Content {
			t.Errorf("message %d content = %q, want %q", i, out[i].Content, in[i].Content)
		}
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{
			name:      "rate limited",
			err:       &goopenai.APIError{HTTPStatusCode: 429},
			transient: true,
		},
		{
			name:      "server error",
			err:       &goopenai.APIError{HTTPStatusCode: 503},
			transient: true,
		},
		{
			name:      "bad request",
			err:       &goopenai.APIError{HTTPStatusCode: 400},
			transient: false,
		},
		{
			name:      "auth failure",
			err:       &goopenai.APIError{HTTPStatusCode: 401},
			transient: false,
		},
		{
			name:      "network failure",
			err:       io.ErrUnexpectedEOF,
			transient: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := classify("test", tt.err)
			if got == nil {
				t.Fatal("classify returned nil")
			}
			if errors.Is(got, provider.ErrTransient) != tt.transient {
				t.Errorf("transient = %v, want %v (err: %v)", !tt.transient, tt.transient, got)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("original error not preserved: %v", got)
			}
		})
	}
}
