package tui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestWrapTextRespectsWidth(t *testing.T) {
	text := "Service de messagerie gratuit financé par la publicité ciblée 📧 et l'analyse des contenus"
	lines := wrapText(text, 20)
	if len(lines) < 2 {
		t.Fatalf("expected several lines, got %v", lines)
	}
	for _, l := range lines {
		if w := runewidth.StringWidth(l); w > 20 {
			t.Fatalf("line %q is %d cells wide", l, w)
		}
	}
	if got := strings.Join(lines, " "); got != text {
		t.Fatalf("wrapping lost words: %q", got)
	}
}

func TestWrapTextSplitsLongWords(t *testing.T) {
	lines := wrapText("abcdefghij", 4)
	want := []string{"abcd", "efgh", "ij"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestWrapTextEmptyAndUnbounded(t *testing.T) {
	if lines := wrapText("   ", 10); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
	if lines := wrapText("a  b", 0); len(lines) != 1 || lines[0] != "a b" {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestWrapTextWideRunes(t *testing.T) {
	lines := wrapText("🌱🌱🌱", 4)
	if len(lines) != 2 || lines[0] != "🌱🌱" || lines[1] != "🌱" {
		t.Fatalf("unexpected lines %v", lines)
	}
}
