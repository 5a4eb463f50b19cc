package render

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain text",
			raw:  "hello there",
			want: "hello there",
		},
		{
			name: "escapes html",
			raw:  "a < b && b > c",
			want: "a &lt; b &amp;&amp; b &gt; c",
		},
		{
			name: "bold",
			raw:  "**important**",
			want: "<b>important</b>",
		},
		{
			name: "italic",
			raw:  "__quiet__",
			want: "<i>quiet</i>",
		},
		{
			name: "inline code",
			raw:  "run `go build` now",
			want: "run <code>go build</code> now",
		},
		{
			name: "markers inside inline code are literal",
			raw:  "`**not bold**`",
			want: "<code>**not bold**</code>",
		},
		{
			name: "fenced block with language",
			raw:  "```go\nfmt.Println(1 < 2)\n```",
			want: "<pre><code class=\"language-go\">fmt.Println(1 &lt; 2)\n</code></pre>",
		},
		{
			name: "fenced block without language",
			raw:  "```\nplain\n```",
			want: "<pre>plain\n</pre>",
		},
		{
			name: "unterminated bold is implicitly closed",
			raw:  "**partial",
			want: "<b>partial</b>",
		},
		{
			name: "unterminated inline code is implicitly closed",
			raw:  "see `fmt.Prin",
			want: "see <code>fmt.Prin</code>",
		},
		{
			name: "unterminated fence is implicitly closed",
			raw:  "```python\nprint(",
			want: "<pre><code class=\"language-python\">print(</code></pre>",
		},
		{
			name: "interleaved spans still nest properly",
			raw:  "**a __b** c__",
			want: "<b>a <i>b</i></b><i> c</i>",
		},
		{
			name: "nested bold and italic",
			raw:  "**bold __both__ bold**",
			want: "<b>bold <i>both</i> bold</b>",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HTML(tt.raw)
			if got != tt.want {
				t.Errorf("HTML(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestHTMLIsPure(t *testing.T) {
	raw := "**growing __prefix`with code"

	first := HTML(raw)
	second := HTML(raw)

	if first != second {
		t.Errorf("HTML is not deterministic: %q vs %q", first, second)
	}
}

func TestHTMLGrowingPrefixesStayValid(t *testing.T) {
	full := "intro **bold __both__** and `code` plus\n```go\nx := 1 < 2\n```\ntail"

	for i := 0; i <= len(full); i++ {
		rendered := HTML(full[:i])
		if err := checkBalanced(rendered); err != nil {
			t.Fatalf("prefix %q rendered to unbalanced markup %q: %v", full[:i], rendered, err)
		}
	}
}

// TestHTMLAlwaysBalanced feeds arbitrary inputs, including ones with
// stray and split delimiters, and requires every render to be parseable
// well-nested markup.
func TestHTMLAlwaysBalanced(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pieces := rapid.SliceOfN(rapid.SampledFrom([]string{
			"**", "__", "`", "```", "\n", "<", ">", "&",
			"word", "go\n", "x := 1", " ", "*",
		}), 0, 24).Draw(t, "pieces")

		raw := strings.Join(pieces, "")
		rendered := HTML(raw)

		if err := checkBalanced(rendered); err != nil {
			t.Fatalf("HTML(%q) = %q: %v", raw, rendered, err)
		}

		if HTML(raw) != rendered {
			t.Fatalf("HTML(%q) is not deterministic", raw)
		}
	})
}

// checkBalanced verifies that every tag in rendered output is one of the
// known tags and that open/close pairs nest properly.
func checkBalanced(rendered string) error {
	known := map[string]bool{
		"b": true, "i": true, "code": true, "pre": true,
	}

	var stack []string
	i := 0
	for i < len(rendered) {
		if rendered[i] != '<' {
			i++
			continue
		}

		end := strings.IndexByte(rendered[i:], '>')
		if end < 0 {
			return errUnbalanced("unterminated tag")
		}

		tag := rendered[i+1 : i+end]
		i += end + 1

		closing := strings.HasPrefix(tag, "/")
		name := strings.TrimPrefix(tag, "/")
		if space := strings.IndexByte(name, ' '); space >= 0 {
			name = name[:space]
		}

		if !known[name] {
			return errUnbalanced("unknown tag " + name)
		}

		if closing {
			if len(stack) == 0 || stack[len(stack)-1] != name {
				return errUnbalanced("mismatched closing tag " + name)
			}
			stack = stack[:len(stack)-1]
		} else {
			stack = append(stack, name)
		}
	}

	if len(stack) != 0 {
		return errUnbalanced("unclosed tags remain")
	}
	return nil
}

type errUnbalanced string

func (e errUnbalanced) Error() string { return string(e) }
