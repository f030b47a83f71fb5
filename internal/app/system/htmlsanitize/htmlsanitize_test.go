package htmlsanitize

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{"plain text", "slow morning", []string{"slow morning"}, nil},
		{"formatting kept", "<p>felt <strong>great</strong></p>", []string{"<p>", "<strong>great</strong>"}, nil},
		{"script removed", "<p>ok</p><script>alert(1)</script>", []string{"<p>ok</p>"}, []string{"script", "alert"}},
		{"attributes dropped", `<p onclick="x()" class="big">hi</p>`, []string{"<p>hi</p>"}, []string{"onclick", "class"}},
		{"links dropped", `<a href="https://example.com">site</a>`, []string{"site"}, []string{"<a", "href"}},
		{"images dropped", `<img src="x" onerror="alert(1)">`, nil, []string{"<img", "onerror"}},
		{"lists kept", "<ul><li>cramps</li></ul>", []string{"<ul>", "<li>cramps</li>"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Sanitize(%q) = %q, missing %q", tt.input, got, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Sanitize(%q) = %q, should not contain %q", tt.input, got, s)
				}
			}
		})
	}
}

func TestPrepareForDisplay(t *testing.T) {
	if got := PrepareForDisplay(""); got != "" {
		t.Errorf("PrepareForDisplay(\"\") = %q", got)
	}
	if got := string(PrepareForDisplay("tired\nbut ok & calm")); got != "<p>tired<br>but ok &amp; calm</p>" {
		t.Errorf("PrepareForDisplay(plain) = %q", got)
	}
	if got := string(PrepareForDisplay("<em>tender</em><script>x</script>")); got != "<em>tender</em>" {
		t.Errorf("PrepareForDisplay(html) = %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	tests := map[string]bool{
		"":              true,
		"a < b":         true,
		"<p>hi</p>":     false,
		"3 > 2 and 1<2": false,
	}
	for in, want := range tests {
		if got := IsPlainText(in); got != want {
			t.Errorf("IsPlainText(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"<p>felt   <b>fine</b></p>", 20, "felt fine"},
		{"a very long journal entry", 6, "a very…"},
		{"tea & toast", 0, "tea & toast"},
		{"🌸🌸🌸🌸", 2, "🌸🌸…"},
	}
	for _, tt := range tests {
		if got := Excerpt(tt.in, tt.max); got != tt.want {
			t.Errorf("Excerpt(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
