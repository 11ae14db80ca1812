package view

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
)

// voidElements cannot have children and have no closing tag.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// maxDepth bounds component nesting so a self-rendering component cannot
// recurse forever.
const maxDepth = 256

// HTML renders n to a string.
func HTML(n *Node) (string, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteHTML streams n to w. Attributes are written in sorted order so output
// is deterministic.
func WriteHTML(w io.Writer, n *Node) error {
	return writeNode(w, n, 0)
}

func writeNode(w io.Writer, n *Node, depth int) error {
	if n == nil {
		return nil
	}
	if depth > maxDepth {
		return fmt.Errorf("view: nesting deeper than %d", maxDepth)
	}

	switch n.Kind {
	case KindElement:
		return writeElement(w, n, depth)
	case KindText:
		_, err := io.WriteString(w, escapeHTML(n.Text))
		return err
	case KindRaw:
		_, err := io.WriteString(w, n.Text)
		return err
	case KindFragment:
		for _, c := range n.Children {
			if err := writeNode(w, c, depth+1); err != nil {
				return err
			}
		}
		return nil
	case KindComponent:
		if n.Comp == nil {
			return nil
		}
		return writeNode(w, n.Comp.Render(), depth+1)
	default:
		return fmt.Errorf("view: unknown node kind: %d", n.Kind)
	}
}

func writeElement(w io.Writer, n *Node, depth int) error {
	if _, err := fmt.Fprintf(w, "<%s", n.Tag); err != nil {
		return err
	}

	keys := make([]string, 0, len(n.Props))
	for k := range n.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := n.Props[k].(type) {
		case bool:
			if v {
				if _, err := fmt.Fprintf(w, " %s", k); err != nil {
					return err
				}
			}
		case nil:
		default:
			if _, err := fmt.Fprintf(w, ` %s="%s"`, k, escapeAttr(fmt.Sprint(v))); err != nil {
				return err
			}
		}
	}

	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}
	if voidElements[n.Tag] {
		return nil
	}

	for _, c := range n.Children {
		if err := writeNode(w, c, depth+1); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "</%s>", n.Tag)
	return err
}

// escapeHTML escapes text for safe inclusion in HTML content.
func escapeHTML(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))

	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		default:
			buf.WriteRune(r)
		}
	}

	return buf.String()
}

// escapeAttr escapes text for an attribute value, including whitespace that
// would break attribute parsing.
func escapeAttr(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))

	for _, r := range s {
		switch r {
		case '\n':
			buf.WriteString("&#10;")
		case '\r':
			buf.WriteString("&#13;")
		case '\t':
			buf.WriteString("&#9;")
		default:
			buf.WriteString(escapeHTML(string(r)))
		}
	}

	return buf.String()
}
