package fetch

import "testing"

func TestConvertHeadingAndParagraph(t *testing.T) {
	t.Parallel()

	c := NewConverter()
	got, err := c.Convert("<html><head><title>T</title></head><body><h1>Hello</h1><p>World <b>bold</b>.</p></body></html>")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := "# Hello\n\nWorld **bold**.\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConvertLinksAndImages(t *testing.T) {
	t.Parallel()

	c := NewConverter()
	got, err := c.Convert(`<p>See <a href="https://example.com/docs">docs</a> and <img src="i.png" alt="pic"></p>`)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := "See [docs](https://example.com/docs) and ![pic](i.png)\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConvertLists(t *testing.T) {
	t.Parallel()

	c := NewConverter()

	got, err := c.Convert("<ul><li>one</li><li>two</li></ul>")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if want := "- one\n- two\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	got, err = c.Convert("<ol><li>first</li><li>second</li></ol>")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if want := "1. first\n2. second\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConvertCodeBlock(t *testing.T) {
	t.Parallel()

	c := NewConverter()
	got, err := c.Convert("<pre><code>x = 1\ny = 2</code></pre>")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := "```\nx = 1\ny = 2\n```\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConvertSkipsScriptAndStyle(t *testing.T) {
	t.Parallel()

	c := NewConverter()
	got, err := c.Convert("<p>visible</p><script>var hidden = 1;</script><style>p{}</style>")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if want := "visible\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConvertBlockquote(t *testing.T) {
	t.Parallel()

	c := NewConverter()
	got, err := c.Convert("<blockquote><p>quoted</p></blockquote>")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if want := "> quoted\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
