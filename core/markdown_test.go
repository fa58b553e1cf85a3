package voicecall

import "testing"

func TestCleanMarkdownStripsFormatting(t *testing.T) {
	for name, tc := range map[string]struct {
		in   string
		want string
	}{
		"plain text passes through": {
			in:   "Bonjour, comment vas-tu ?",
			want: "Bonjour, comment vas-tu ?",
		},
		"bold and italic": {
			in:   "This is **very** important and *subtle* too.",
			want: "This is very important and subtle too.",
		},
		"inline code": {
			in:   "Say `bonjour` to greet someone.",
			want: "Say bonjour to greet someone.",
		},
		"code blocks are dropped entirely": {
			in:   "Here:\n```\nun deux trois\n```\nDone.",
			want: "Here: Done.",
		},
		"headings": {
			in:   "## Lesson 1\nGreetings.",
			want: "Lesson 1 Greetings.",
		},
		"links keep their label": {
			in:   "See [the conjugation table](https://example.com/verbs).",
			want: "See the conjugation table.",
		},
		"bullet lists": {
			in:   "- bonjour\n- salut\n- coucou",
			want: "bonjour salut coucou",
		},
		"whitespace collapses": {
			in:   "Hello \n\n   world",
			want: "Hello world",
		},
	} {
		t.Run(name, func(t *testing.T) {
			if got := CleanMarkdown(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCleanMarkdownIsIdempotent(t *testing.T) {
	inputs := []string{
		"**Bonjour !** Try saying:\n- *je suis*\n- `tu es`\n\n## Notes\nSee [this](https://example.com).",
		"Plain sentence with no formatting.",
		"",
	}

	for _, in := range inputs {
		once := CleanMarkdown(in)
		twice := CleanMarkdown(once)
		if once != twice {
			t.Fatalf("expected cleaning to be idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
