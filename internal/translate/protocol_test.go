package translate

import (
	"errors"
	"strings"
	"testing"

	"subtrans/internal/services"
)

func TestEncodeTexts(t *testing.T) {
	got := EncodeTexts([]string{"Hello", "Two\nlines ", "  spaced  "})
	want := "#1: Hello\n#2: Two<br>lines\n#3: spaced"
	if got != want {
		t.Fatalf("EncodeTexts mismatch\nwant %q\n got %q", want, got)
	}
}

func TestDecodeTextsRoundTrip(t *testing.T) {
	texts := []string{"Hello", "Two\nlines", "Three"}
	got, err := DecodeTexts(EncodeTexts(texts), len(texts))
	if err != nil {
		t.Fatalf("DecodeTexts returned error: %v", err)
	}
	for i := range texts {
		if got[i] != texts[i] {
			t.Fatalf("entry %d: want %q, got %q", i, texts[i], got[i])
		}
	}
}

func TestDecodeTextsToleratesFormattingNoise(t *testing.T) {
	cases := map[string]string{
		"preamble and fence": "Sure, here is the translation:\n```\n#2: Doi\n#1: Unu\n\n#3: Trei <br> linii\n```",
		"fence only":         "```text\n#1: Unu\n#2: Doi\n#3: Trei<br>linii\n```",
		"crlf":               "#1: Unu\r\n#2: Doi\r\n#3: Trei<br>linii\r\n",
	}
	want := []string{"Unu", "Doi", "Trei\nlinii"}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeTexts(reply, 3)
			if err != nil {
				t.Fatalf("DecodeTexts returned error: %v", err)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("entry %d: want %q, got %q", i, want[i], got[i])
				}
			}
		})
	}
}

func TestDecodeTextsRejectsMisalignment(t *testing.T) {
	cases := []struct {
		name   string
		reply  string
		want   int
		reason string
	}{
		{"missing entry", "#1: a\n#2: b", 3, "count mismatch"},
		{"extra entry", "#1: a\n#2: b\n#3: c", 2, "out of range"},
		{"duplicate", "#1: a\n#1: b", 2, "repeated"},
		{"zero", "#0: a", 1, "out of range"},
		{"no markers", "just prose", 1, "count mismatch"},
		{"empty", "   ", 1, "empty reply"},
		{"blank entry", "#1:\n#2: dos", 2, "entry 1 empty"},
		{"break tokens only", "#1: <br> \n#2: dos", 2, "entry 1 empty"},
		{"trailing chatter", "#1: uno\n#2: dos\nHope this helps!", 2, "unmarked line"},
		{"raw line break", "#1: uno\ncontinued\n#2: dos", 2, "unmarked line"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeTexts(tc.reply, tc.want)
			var protoErr *ProtocolError
			if !errors.As(err, &protoErr) {
				t.Fatalf("expected ProtocolError, got %v", err)
			}
			if !strings.Contains(protoErr.Reason, tc.reason) {
				t.Fatalf("expected reason containing %q, got %q", tc.reason, protoErr.Reason)
			}
			if services.Classify(err) != services.KindValidation {
				t.Fatalf("expected validation kind, got %s", services.Classify(err))
			}
		})
	}
}

func TestSystemPromptNamesLanguages(t *testing.T) {
	prompt := SystemPrompt("English", "Romanian")
	if !strings.Contains(prompt, "English") || !strings.Contains(prompt, "Romanian") {
		t.Fatalf("prompt missing languages: %q", prompt)
	}
	if !strings.Contains(prompt, lineBreakToken) {
		t.Fatalf("prompt missing line break token: %q", prompt)
	}
}
