package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "transport error",
			code:    CodeDialFailed,
			wantMsg: "Could not connect to the server",
			wantCat: CategoryTransport,
		},
		{
			name:    "auth error",
			code:    CodeLoginRejected,
			wantMsg: "Login rejected",
			wantCat: CategoryAuth,
		},
		{
			name:    "spectator error",
			code:    CodeMapMissing,
			wantMsg: "You do not have the map",
			wantCat: CategorySpectator,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "unknown host %q", "peppy")
	if err.Message != `unknown host "peppy"` {
		t.Errorf("Message = %q, want %q", err.Message, `unknown host "peppy"`)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestKiaiError_Error(t *testing.T) {
	err := New(CodeNotConnected)
	if got, want := err.Error(), "E004: Not connected"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New(CodeWriteFailed).Wrap(fmt.Errorf("broken pipe"))
	if got, want := wrapped.Error(), "E003: Failed to send packet: broken pipe"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &KiaiError{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}
}

func TestKiaiError_Is(t *testing.T) {
	err := fmt.Errorf("connect: %w", New(CodeDialFailed).Wrap(fmt.Errorf("refused")))

	if !stderrors.Is(err, New(CodeDialFailed)) {
		t.Error("errors.Is should match on code")
	}
	if stderrors.Is(err, New(CodeLoginRejected)) {
		t.Error("errors.Is should not match a different code")
	}
	if CodeOf(err) != CodeDialFailed {
		t.Errorf("CodeOf() = %q, want %q", CodeOf(err), CodeDialFailed)
	}
	if CodeOf(fmt.Errorf("plain")) != "" {
		t.Error("CodeOf(plain) should be empty")
	}
}

func TestKiaiError_Builders(t *testing.T) {
	err := New(CodeConfigInvalid).
		WithDetail("server_url must use ws or wss").
		WithSuggestion("Use ws://host:port/path")

	if err.Detail != "server_url must use ws or wss" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Suggestion != "Use ws://host:port/path" {
		t.Errorf("Suggestion = %q", err.Suggestion)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodeDialFailed) != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	ke := New(CodeDialFailed)
	if FromError(fmt.Errorf("outer: %w", ke), CodeWriteFailed) != ke {
		t.Error("FromError should return the KiaiError in the chain")
	}

	stdErr := &testError{msg: "test error"}
	result := FromError(stdErr, CodeWriteFailed)
	if result.Wrapped != stdErr {
		t.Error("Standard error should be wrapped")
	}
	if result.Code != CodeWriteFailed {
		t.Errorf("Code = %q, want %q", result.Code, CodeWriteFailed)
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New(CodeDialFailed).Wrap(fmt.Errorf("connection refused"))
	formatted := err.Format()

	for _, want := range []string{
		"ERROR E001: Could not connect to the server",
		"The websocket handshake with the server failed.",
		"Cause: connection refused",
		"Hint: Check server_url",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q:\n%s", want, formatted)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	if got, want := New(CodeMapMissing).FormatCompact(), "E301: You do not have the map"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	json := New(CodeLoginRejected).Wrap(fmt.Errorf("Incorrect password")).FormatJSON()

	for _, want := range []string{
		`"code":"E200"`,
		`"category":"auth"`,
		`"message":"Login rejected"`,
		`"cause":"Incorrect password"`,
	} {
		if !strings.Contains(json, want) {
			t.Errorf("FormatJSON() missing %s: %s", want, json)
		}
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, fmt.Errorf("boom"))
	if !strings.Contains(buf.String(), "ERROR: boom") {
		t.Errorf("Fprint(plain) = %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, New(CodeNotSpectating))
	if !strings.Contains(buf.String(), "E302") {
		t.Errorf("Fprint(KiaiError) = %q", buf.String())
	}
}

func TestRegistryCodesAreCategorized(t *testing.T) {
	prefix := map[Category]string{
		CategoryTransport: "E0",
		CategoryProtocol:  "E1",
		CategoryAuth:      "E2",
		CategorySpectator: "E3",
		CategoryResource:  "E4",
		CategoryConfig:    "E5",
		CategoryCLI:       "E6",
	}

	for _, code := range GetAllCodes() {
		tmpl, ok := GetTemplate(code)
		if !ok {
			t.Fatalf("GetTemplate(%q) missing", code)
		}
		if want := prefix[tmpl.Category]; !strings.HasPrefix(code, want) {
			t.Errorf("code %s has category %s, want prefix %s", code, tmpl.Category, want)
		}
		if tmpl.Message == "" {
			t.Errorf("code %s has no message", code)
		}
	}
}

func TestRegister(t *testing.T) {
	Register("E999", ErrorTemplate{
		Category: CategoryCLI,
		Message:  "Custom test error",
	})
	defer delete(registry, "E999")

	if err := New("E999"); err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}
}

func TestWrapText(t *testing.T) {
	if got := wrapText("short text", 100); len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}

	if got := wrapText("this is a longer text that should be wrapped", 20); len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}

	if got := wrapText("", 10); len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestColorFunctions(t *testing.T) {
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}

	DisableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
	EnableColors()
}
