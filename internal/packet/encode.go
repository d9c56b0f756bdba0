package packet

import (
	"fmt"
	"strings"
)

// Header is the XML declaration written before every encoded packet.
const Header = `<?xml version="1.0" ?>`

// textEscaper escapes character data while leaving line breaks intact, so
// PEM blocks travel unmodified.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Encode renders v as an XML document. v must be a node with exactly one
// child, which becomes the document root.
//
// Node children become nested elements. The items of a list are written
// into the enclosing element one after another, so a list of single-child
// nodes produces repeated sibling tags. Empty values produce self-closing
// elements.
func Encode(v Value) (string, error) {
	if v.kind != KindNode || len(v.fields) != 1 {
		return "", fmt.Errorf("packet must have exactly one root element, got %s with %d children", v.kind, len(v.fields))
	}

	var b strings.Builder
	b.WriteString(Header)
	root := v.fields[0]
	if err := writeElement(&b, root.Name, root.Value); err != nil {
		return "", err
	}
	return b.String(), nil
}

// MustEncode is like Encode but panics on a malformed tree. Intended for
// request literals built in code.
func MustEncode(v Value) string {
	s, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return s
}

func writeElement(b *strings.Builder, name string, v Value) error {
	if name == "" {
		return fmt.Errorf("element name cannot be empty")
	}

	var inner strings.Builder
	if err := writeContent(&inner, v); err != nil {
		return err
	}

	if inner.Len() == 0 {
		b.WriteString("<" + name + "/>")
		return nil
	}
	b.WriteString("<" + name + ">")
	b.WriteString(inner.String())
	b.WriteString("</" + name + ">")
	return nil
}

func writeContent(b *strings.Builder, v Value) error {
	switch v.kind {
	case KindEmpty:
		return nil
	case KindText:
		_, err := textEscaper.WriteString(b, v.text)
		return err
	case KindNode:
		for _, f := range v.fields {
			if err := writeElement(b, f.Name, f.Value); err != nil {
				return err
			}
		}
		return nil
	case KindList:
		for _, item := range v.items {
			if err := writeContent(b, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown value kind %d", v.kind)
	}
}
