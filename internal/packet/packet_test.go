package packet

import (
	"fmt"
	"strings"
	"testing"
)

func TestEncode(t *testing.T) {
	t.Run("list items share the enclosing element", func(t *testing.T) {
		req := Obj("packet", Obj("test", List(
			Obj("a", Text("123")),
			Obj("b", Text("456")),
			Obj("c", Empty()),
		)))

		got, err := Encode(req)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		want := `<?xml version="1.0" ?><packet><test><a>123</a><b>456</b><c/></test></packet>`
		if got != want {
			t.Errorf("Encode() =\n%s\nwant\n%s", got, want)
		}
	})

	t.Run("text root", func(t *testing.T) {
		got, err := Encode(Obj("packet", Text("test")))
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if got != `<?xml version="1.0" ?><packet>test</packet>` {
			t.Errorf("unexpected encoding: %s", got)
		}
	})

	t.Run("repeated tags from list of nodes", func(t *testing.T) {
		req := Obj("vrt_hst", List(
			Obj("property", Map(F("name", Text("ssl")), F("value", Text("true")))),
			Obj("property", Map(F("name", Text("certificate_name")), F("value", Text("cert")))),
		))
		got := MustEncode(req)
		want := `<?xml version="1.0" ?><vrt_hst>` +
			`<property><name>ssl</name><value>true</value></property>` +
			`<property><name>certificate_name</name><value>cert</value></property>` +
			`</vrt_hst>`
		if got != want {
			t.Errorf("Encode() =\n%s\nwant\n%s", got, want)
		}
	})

	t.Run("escapes markup but keeps newlines", func(t *testing.T) {
		pem := "-----BEGIN CERTIFICATE-----\nA&B<C>\n-----END CERTIFICATE-----"
		got := MustEncode(Obj("cert", Text(pem)))
		if !strings.Contains(got, "\nA&amp;B&lt;C&gt;\n") {
			t.Errorf("unexpected escaping: %s", got)
		}
	})

	t.Run("rejects multiple roots", func(t *testing.T) {
		_, err := Encode(Map(F("a", Empty()), F("b", Empty())))
		if err == nil {
			t.Error("expected error for two root elements")
		}
	})

	t.Run("rejects non-node root", func(t *testing.T) {
		if _, err := Encode(Text("x")); err == nil {
			t.Error("expected error for text root")
		}
	})
}

func TestDecode(t *testing.T) {
	t.Run("whitespace fragments collapse", func(t *testing.T) {
		resp := `<?xml version="1.0" ?>
        <packet>
            <result>
                <status>error</status>
                <code/>
                <error>
                    1
                    2
                    3
                </error>
            </result>
        </packet>`

		v, err := DecodeString(resp, Adaptive)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		result := v.Get("packet", "result")
		if got := result.Get("status").Text(); got != "error" {
			t.Errorf("status = %q, want error", got)
		}
		if !result.Get("code").IsEmpty() {
			t.Errorf("code should be empty, got %s", result.Get("code").Kind())
		}
		text := result.Get("error").Text()
		for _, frag := range []string{"1", "2", "3"} {
			if !strings.Contains(text, frag) {
				t.Errorf("error text %q missing %q", text, frag)
			}
		}
	})

	t.Run("repeated tag promotes to list", func(t *testing.T) {
		v, err := DecodeString(`<r><a>1</a><b>x</b><a>2</a><a>3</a></r>`, Adaptive)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		a := v.Get("r", "a")
		if a.Kind() != KindList {
			t.Fatalf("expected list, got %s", a.Kind())
		}
		items := a.Items()
		if len(items) != 3 || items[0].Text() != "1" || items[2].Text() != "3" {
			t.Errorf("unexpected items: %+v", items)
		}
		if v.Get("r", "b").Text() != "x" {
			t.Errorf("single tag should stay a direct entry")
		}
		if keys := v.Get("r").Keys(); len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
			t.Errorf("keys = %v, want [a b]", keys)
		}
	})

	t.Run("force sequence", func(t *testing.T) {
		v, err := DecodeString(`<r><a>1</a><b>x</b><a>2</a></r>`, ForceSequence)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		items := v.Get("r").Items()
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}
		names := []string{"a", "b", "a"}
		for i, item := range items {
			if keys := item.Keys(); len(keys) != 1 || keys[0] != names[i] {
				t.Errorf("item %d keys = %v, want [%s]", i, keys, names[i])
			}
		}
	})

	t.Run("mixed content keeps elements", func(t *testing.T) {
		v, err := DecodeString(`<r>lead<a>1</a>trail</r>`, Adaptive)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if v.Get("r").Kind() != KindNode {
			t.Fatalf("expected node, got %s", v.Get("r").Kind())
		}
		if v.Get("r", "a").Text() != "1" {
			t.Error("child element lost")
		}
	})

	t.Run("text split by comment is joined", func(t *testing.T) {
		v, err := DecodeString(`<r>ab<!-- c -->cd</r>`, Adaptive)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if got := v.Get("r").Text(); got != "abcd" {
			t.Errorf("text = %q, want abcd", got)
		}
	})

	t.Run("latin1 declaration", func(t *testing.T) {
		doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><r>caf\xe9</r>")
		v, err := Decode(doc, Adaptive)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if got := v.Get("r").Text(); got != "café" {
			t.Errorf("text = %q, want café", got)
		}
	})

	t.Run("malformed document", func(t *testing.T) {
		if _, err := DecodeString(`<r><a></r>`, Adaptive); err == nil {
			t.Error("expected parse error")
		}
		if _, err := DecodeString(``, Adaptive); err == nil {
			t.Error("expected error for empty document")
		}
	})
}

func TestRoundTrip(t *testing.T) {
	trees := []Value{
		Obj("packet", Text("ok")),
		Obj("packet", Empty()),
		Obj("packet", Obj("site", Obj("get", Map(
			F("filter", Obj("name", Text("example.com"))),
			F("dataset", Obj("hosting", Empty())),
		)))),
		Obj("packet", Map(
			F("result", Map(F("status", Text("ok")), F("id", Text("7")))),
			F("data", Obj("gen_info", Map(
				F("name", Text("пример.рф")),
				F("ascii-name", Text("xn--e1afmkfd.xn--p1ai")),
				F("htype", Empty()),
			))),
		)),
	}

	for i, tree := range trees {
		if !roundTrips(tree) {
			t.Fatalf("tree %d is not round-trippable", i)
		}
		doc := MustEncode(tree)
		t.Run(fmt.Sprintf("tree_%d", i), func(t *testing.T) {
			got, err := DecodeString(doc, Adaptive)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !got.Equal(tree) {
				t.Errorf("round trip mismatch for %s", doc)
			}
		})
	}
}

// roundTrips reports whether a tree is free of lists, which flatten into
// their parent element on encode.
func roundTrips(v Value) bool {
	switch v.Kind() {
	case KindNode:
		for _, f := range v.Fields() {
			if f.Value.Kind() == KindList {
				return false
			}
			if !roundTrips(f.Value) {
				return false
			}
		}
	case KindList:
		return false
	}
	return true
}

func TestValueAccessors(t *testing.T) {
	v := Map(F("a", Text("1")), F("b", Empty()), F("a", Text("2")))

	if got := v.Get("a").Text(); got != "2" {
		t.Errorf("repeated Map field should replace in place, got %q", got)
	}
	if keys := v.Keys(); len(keys) != 2 {
		t.Errorf("keys = %v, want 2 entries", keys)
	}
	if !v.Has("b") || v.Has("c") {
		t.Error("Has reported wrong membership")
	}
	if !v.Get("missing", "deeper").IsEmpty() {
		t.Error("missing path should be empty")
	}
	if !v.Get("a", "x").IsEmpty() {
		t.Error("walking through text should be empty")
	}
	if items := Empty().Items(); items != nil {
		t.Errorf("Empty().Items() = %v, want nil", items)
	}
	if items := Text("x").Items(); len(items) != 1 {
		t.Errorf("Text().Items() length = %d, want 1", len(items))
	}
	if Text("x").Get("y").Kind() != KindEmpty {
		t.Error("Get on text should be empty")
	}
	if Obj("x", Empty()).Text() != "" {
		t.Error("Text on node should be empty string")
	}

	w := v.With("c", Text("3"))
	if v.Has("c") {
		t.Error("With must not mutate the receiver")
	}
	if w.Get("c").Text() != "3" {
		t.Error("With did not add child")
	}
}
