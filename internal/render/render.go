// Package render converts model output with lightweight markdown markers
// into transport-safe HTML. Rendering is a pure function of its input, so
// the same growing prefix can be re-rendered on every stream fragment:
// any span left unterminated at the end of the input is provisionally
// closed, which keeps every intermediate render valid markup until the
// real closing delimiter arrives.
package render

import (
	"html"
	"strings"
)

type span int

const (
	spanBold span = iota
	spanItalic
	spanCode
)

var spanTags = map[span][2]string{
	spanBold:   {"<b>", "</b>"},
	spanItalic: {"<i>", "</i>"},
	spanCode:   {"<code>", "</code>"},
}

// HTML renders raw markdown-flavored text as escaped HTML. Supported
// markers: **bold**, __italic__, `inline code`, and ``` fenced code
// blocks with an optional language tag on the fence line.
func HTML(raw string) string {
	var out strings.Builder
	var open []span

	i := 0
	for i < len(raw) {
		codeOpen := isOpen(open, spanCode)

		switch {
		case !codeOpen && strings.HasPrefix(raw[i:], "```"):
			closeAll(&out, &open)
			i = writeFenced(&out, raw, i+3)

		case !codeOpen && strings.HasPrefix(raw[i:], "**"):
			toggle(&out, &open, spanBold)
			i += 2

		case !codeOpen && strings.HasPrefix(raw[i:], "__"):
			toggle(&out, &open, spanItalic)
			i += 2

		case raw[i] == '`':
			toggle(&out, &open, spanCode)
			i++

		default:
			writeEscapedByte(&out, raw[i])
			i++
		}
	}

	closeAll(&out, &open)
	return out.String()
}

// writeFenced consumes a fenced code block starting just after the opening
// fence. An unterminated block runs to the end of the input; the closing
// fence is implied.
func writeFenced(out *strings.Builder, raw string, i int) int {
	lang := ""
	if nl := strings.IndexByte(raw[i:], '\n'); nl >= 0 {
		lang = strings.TrimSpace(raw[i : i+nl])
		i += nl + 1
	} else {
		lang = strings.TrimSpace(raw[i:])
		i = len(raw)
	}

	body := raw[i:]
	next := len(raw)
	if end := strings.Index(raw[i:], "```"); end >= 0 {
		body = raw[i : i+end]
		next = i + end + 3
	}

	if lang != "" {
		out.WriteString(`<pre><code class="language-` + html.EscapeString(lang) + `">`)
		out.WriteString(escape(body))
		out.WriteString("</code></pre>")
	} else {
		out.WriteString("<pre>")
		out.WriteString(escape(body))
		out.WriteString("</pre>")
	}

	return next
}

// toggle opens kind if it is not open, and closes it otherwise. Closing a
// span that is not innermost closes the spans above it first and reopens
// them after, so the output always nests properly.
func toggle(out *strings.Builder, open *[]span, kind span) {
	at := -1
	for idx, s := range *open {
		if s == kind {
			at = idx
			break
		}
	}

	if at < 0 {
		out.WriteString(spanTags[kind][0])
		*open = append(*open, kind)
		return
	}

	stack := *open
	for idx := len(stack) - 1; idx >= at; idx-- {
		out.WriteString(spanTags[stack[idx]][1])
	}
	for idx := at + 1; idx < len(stack); idx++ {
		out.WriteString(spanTags[stack[idx]][0])
	}
	*open = append(stack[:at], stack[at+1:]...)
}

func closeAll(out *strings.Builder, open *[]span) {
	stack := *open
	for idx := len(stack) - 1; idx >= 0; idx-- {
		out.WriteString(spanTags[stack[idx]][1])
	}
	*open = stack[:0]
}

func isOpen(open []span, kind span) bool {
	for _, s := range open {
		if s == kind {
			return true
		}
	}
	return false
}

func escape(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		writeEscapedByte(&out, s[i])
	}
	return out.String()
}

func writeEscapedByte(out *strings.Builder, b byte) {
	switch b {
	case '&':
		out.WriteString("&amp;")
	case '<':
		out.WriteString("&lt;")
	case '>':
		out.WriteString("&gt;")
	default:
		out.WriteByte(b)
	}
}
