package textutil

import "testing"

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Human Native is joining Cloudflare", "human-native-is-joining-cloudflare"},
		{"---Test Title---", "test-title"},
		{"A   closer  look -- at BGP", "a-closer-look-at-bgp"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugifyDeterministic(t *testing.T) {
	t.Parallel()

	title := "Going deeper: QUIC & HTTP/3 at the edge"
	if Slugify(title) != Slugify(title) {
		t.Fatalf("Slugify is not deterministic for %q", title)
	}
}

func TestExtractSlug(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"https://blog.example.com/my-post/", "my-post"},
		{"https://blog.example.com/my-post", "my-post"},
		{"https://other.com/x", ""},
		{"://not a url", ""},
		{"https://blog.example.com/", ""},
	}

	for _, tc := range cases {
		if got := ExtractSlug(tc.in); got != tc.want {
			t.Fatalf("ExtractSlug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDecodeEntities(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"&amp;", "&"},
		{"&#233;", "é"},
		{"&#xE9;", "é"},
		{"&eacute;", "é"},
		{"fish &amp; chips &ndash; to go", "fish & chips – to go"},
		{"&amp;#233;", "&#233;"}, // escaped reference stays escaped
		{"plain text", "plain text"},
	}

	for _, tc := range cases {
		if got := DecodeEntities(tc.in); got != tc.want {
			t.Fatalf("DecodeEntities(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	t.Parallel()

	got := NormalizeWhitespace("  one\n\ttwo   three \r\n")
	if got != "one two three" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestTruncateAtWord(t *testing.T) {
	t.Parallel()

	if got := TruncateAtWord("one two three four", 11); got != "one two..." {
		t.Fatalf("expected truncation at word boundary, got %q", got)
	}
	if got := TruncateAtWord("short", 11); got != "short" {
		t.Fatalf("strings within the limit must pass through, got %q", got)
	}
	if got := TruncateAtWord("", 10); got != "" {
		t.Fatalf("empty input should stay empty, got %q", got)
	}
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	in := "<p>Hello <b>world</b></p><p>Second&nbsp;&amp; last</p><script>ignore()</script>"
	got := StripHTML(in)
	want := "Hello world Second & last"
	if got != want {
		t.Fatalf("StripHTML = %q, want %q", got, want)
	}
}
