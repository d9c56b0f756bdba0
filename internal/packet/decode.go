package packet

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Mode selects how sibling elements are grouped while decoding.
type Mode int

const (
	// Adaptive keeps a tag seen once as a direct child and promotes it to a
	// list on its second occurrence.
	Adaptive Mode = iota

	// ForceSequence decodes every element with element children into a list
	// of single-child nodes in document order.
	ForceSequence
)

// Decode parses an XML document into a tree rooted at a node holding the
// document element.
func Decode(data []byte, mode Mode) (Value, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Value{}, fmt.Errorf("no root element in packet")
			}
			return Value{}, fmt.Errorf("failed to parse packet: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			root, err := decodeElement(dec, mode)
			if err != nil {
				return Value{}, err
			}
			return Obj(start.Name.Local, root), nil
		}
	}
}

// DecodeString is Decode for string input.
func DecodeString(data string, mode Mode) (Value, error) {
	return Decode([]byte(data), mode)
}

// slot collects the children sharing one tag under a parent. It holds a
// single value until the tag repeats, then a promoted list.
type slot struct {
	single   Value
	items    []Value
	promoted bool
}

func (s *slot) value() Value {
	if s.promoted {
		return List(s.items...)
	}
	return s.single
}

// accumulator builds the value of one element while its tokens stream in.
type accumulator struct {
	mode     Mode
	text     strings.Builder
	hasText  bool
	children bool
	order    []string
	slots    map[string]*slot
	sequence []Value
}

func (a *accumulator) addText(data string) {
	if strings.TrimSpace(data) == "" {
		return
	}
	// Text after element children is mixed content; the packet schema never
	// relies on it.
	if a.children {
		return
	}
	a.text.WriteString(data)
	a.hasText = true
}

func (a *accumulator) addChild(name string, v Value) {
	if a.hasText {
		a.text.Reset()
		a.hasText = false
	}
	a.children = true

	if a.mode == ForceSequence {
		a.sequence = append(a.sequence, Obj(name, v))
		return
	}

	if a.slots == nil {
		a.slots = make(map[string]*slot)
	}
	s, ok := a.slots[name]
	if !ok {
		a.slots[name] = &slot{single: v}
		a.order = append(a.order, name)
		return
	}
	if !s.promoted {
		s.items = []Value{s.single}
		s.single = Value{}
		s.promoted = true
	}
	s.items = append(s.items, v)
}

func (a *accumulator) value() Value {
	switch {
	case a.children && a.mode == ForceSequence:
		return List(a.sequence...)
	case a.children:
		fields := make([]Field, len(a.order))
		for i, name := range a.order {
			fields[i] = Field{Name: name, Value: a.slots[name].value()}
		}
		return Value{kind: KindNode, fields: fields}
	case a.hasText:
		return Text(a.text.String())
	default:
		return Empty()
	}
}

// decodeElement consumes tokens up to and including the end of the element
// whose start tag was just read.
func decodeElement(dec *xml.Decoder, mode Mode) (Value, error) {
	acc := &accumulator{mode: mode}
	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, fmt.Errorf("failed to parse packet: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, mode)
			if err != nil {
				return Value{}, err
			}
			acc.addChild(t.Name.Local, child)
		case xml.CharData:
			acc.addText(string(t))
		case xml.EndElement:
			return acc.value(), nil
		}
	}
}
