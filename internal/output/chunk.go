package output

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the chat transport's per-message limit.
const DefaultMaxLength = 4096

// Split breaks text into chunks of at most maxLen runes, closing a chunk at a
// line break and, for over-long lines, at a word break. A markup element such
// as <a href="...">title</a> counts as one word. A single word longer than
// maxLen is emitted on its own and is the only chunk that may exceed it.
func Split(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}

	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	acc := &accumulator{maxLen: maxLen}
	for _, line := range strings.Split(text, "\n") {
		if utf8.RuneCountInString(line) > maxLen {
			acc.flush()
			for _, word := range markupFields(line) {
				acc.add(word, " ")
			}
			acc.flush()
			continue
		}
		acc.add(line, "\n")
	}
	acc.flush()

	return acc.chunks
}

type accumulator struct {
	maxLen  int
	current strings.Builder
	length  int
	chunks  []string
}

// add appends piece joined by sep, closing the current chunk first when it
// would overflow.
func (a *accumulator) add(piece, sep string) {
	size := utf8.RuneCountInString(piece)
	if a.length > 0 && a.length+utf8.RuneCountInString(sep)+size > a.maxLen {
		a.flush()
	}
	if a.length > 0 {
		a.current.WriteString(sep)
		a.length += utf8.RuneCountInString(sep)
	}
	a.current.WriteString(piece)
	a.length += size
	if size > a.maxLen {
		a.flush()
	}
}

func (a *accumulator) flush() {
	if chunk := strings.TrimSpace(a.current.String()); chunk != "" {
		a.chunks = append(a.chunks, chunk)
	}
	a.current.Reset()
	a.length = 0
}

// markupFields splits line on whitespace outside markup. An element from its
// opening tag to the matching closing tag stays in one field; an unclosed tag
// extends to its closing '>'.
func markupFields(line string) []string {
	var fields []string
	var current strings.Builder
	emit := func() {
		if current.Len() > 0 {
			fields = append(fields, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case c == '<':
			end := elementEnd(line, i)
			current.WriteString(line[i:end])
			i = end
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			emit()
			i++
		default:
			current.WriteByte(c)
			i++
		}
	}
	emit()
	return fields
}

// elementEnd returns the index just past the element starting at line[start].
func elementEnd(line string, start int) int {
	tagClose := strings.IndexByte(line[start:], '>')
	if tagClose < 0 {
		return len(line)
	}
	tagEnd := start + tagClose + 1

	name := tagName(line[start+1 : tagEnd-1])
	if name == "" {
		return tagEnd
	}
	closing := "</" + name + ">"
	if idx := strings.Index(line[tagEnd:], closing); idx >= 0 {
		return tagEnd + idx + len(closing)
	}
	return tagEnd
}

// tagName returns the lowercased name of an opening tag body, or "" for
// closing, self-closing and declaration tags.
func tagName(body string) string {
	if body == "" || body[0] == '/' || body[0] == '!' || strings.HasSuffix(body, "/") {
		return ""
	}
	end := strings.IndexAny(body, " \t\r\n")
	if end < 0 {
		end = len(body)
	}
	return strings.ToLower(body[:end])
}
