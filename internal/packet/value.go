// Package packet maps API-RPC packets between XML documents and a tree of
// tagged values.
//
// A Value is one of four kinds:
//   - Empty: an element without text or children (<code/>)
//   - Text: an element holding character data only
//   - Node: an ordered set of named children
//   - List: an ordered sequence of values
//
// Requests are built from the constructors and encoded with Encode:
//
//	req := packet.Obj("packet", packet.Obj("site", packet.Obj("get", packet.List(
//	    packet.Obj("filter", packet.Obj("name", packet.Text("example.com"))),
//	    packet.Obj("dataset", packet.Obj("hosting", packet.Empty())),
//	))))
//
// Responses are decoded with Decode and navigated with Get, Text and Items:
//
//	result := resp.Get("packet", "site", "get", "result")
//	if result.Get("status").Text() != "ok" { ... }
package packet

// Kind identifies which variant a Value holds.
type Kind int

// Value kinds.
const (
	KindEmpty Kind = iota
	KindText
	KindNode
	KindList
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindNode:
		return "node"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Field is a named child of a Node.
type Field struct {
	Name  string
	Value Value
}

// Value is a node of the packet tree. The zero Value is Empty.
type Value struct {
	kind   Kind
	text   string
	fields []Field
	items  []Value
}

// Empty returns an empty value.
func Empty() Value {
	return Value{}
}

// Text returns a text value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Obj returns a node with a single child.
func Obj(name string, v Value) Value {
	return Value{kind: KindNode, fields: []Field{{Name: name, Value: v}}}
}

// F is shorthand for building a Field.
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Map returns a node with the given children in order. A repeated name
// replaces the earlier value in place.
func Map(fields ...Field) Value {
	v := Value{kind: KindNode, fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		v = v.With(f.Name, f.Value)
	}
	return v
}

// List returns a sequence value.
func List(items ...Value) Value {
	return Value{kind: KindList, items: items}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsEmpty reports whether v holds nothing.
func (v Value) IsEmpty() bool {
	return v.kind == KindEmpty
}

// Text returns the character data of a text value, or "" for other kinds.
func (v Value) Text() string {
	if v.kind != KindText {
		return ""
	}
	return v.text
}

// Field returns the named child of a node.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindNode {
		return Value{}, false
	}
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether v is a node with the named child.
func (v Value) Has(name string) bool {
	_, ok := v.Field(name)
	return ok
}

// Get walks a path of child names. Any missing step, or a step through a
// non-node value, yields Empty.
func (v Value) Get(path ...string) Value {
	cur := v
	for _, name := range path {
		next, ok := cur.Field(name)
		if !ok {
			return Value{}
		}
		cur = next
	}
	return cur
}

// Keys returns the child names of a node in order.
func (v Value) Keys() []string {
	if v.kind != KindNode {
		return nil
	}
	keys := make([]string, len(v.fields))
	for i, f := range v.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields returns a copy of the children of a node.
func (v Value) Fields() []Field {
	if v.kind != KindNode {
		return nil
	}
	out := make([]Field, len(v.fields))
	copy(out, v.fields)
	return out
}

// Items normalizes the single-or-sequence shapes of API responses: a list
// yields its items, Empty yields nothing, and anything else yields itself.
func (v Value) Items() []Value {
	switch v.kind {
	case KindEmpty:
		return nil
	case KindList:
		out := make([]Value, len(v.items))
		copy(out, v.items)
		return out
	default:
		return []Value{v}
	}
}

// With returns a copy of node v with name set to child. Non-node values are
// treated as an empty node.
func (v Value) With(name string, child Value) Value {
	out := Value{kind: KindNode}
	if v.kind == KindNode {
		out.fields = make([]Field, len(v.fields), len(v.fields)+1)
		copy(out.fields, v.fields)
	}
	for i, f := range out.fields {
		if f.Name == name {
			out.fields[i].Value = child
			return out
		}
	}
	out.fields = append(out.fields, Field{Name: name, Value: child})
	return out
}

// Equal reports whether two trees have the same shape, names and text.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == other.text
	case KindNode:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Name != other.fields[i].Name || !v.fields[i].Value.Equal(other.fields[i].Value) {
				return false
			}
		}
		return true
	case KindList:
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
