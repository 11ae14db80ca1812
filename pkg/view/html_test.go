package view

import "testing"

func TestHTML(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want string
	}{
		{"nil", nil, ""},
		{"empty", Empty(), ""},
		{"text escaped", Text(`<b>"hi" & 'bye'</b>`), "&lt;b&gt;&quot;hi&quot; &amp; &#39;bye&#39;&lt;/b&gt;"},
		{"raw", Raw("<b>x</b>"), "<b>x</b>"},
		{"element", Element("div", ID("main"), Class("card"), "hello"), `<div class="card" id="main">hello</div>`},
		{"void", Element("br"), "<br>"},
		{"bool attrs", Element("input", Attr{Key: "disabled", Value: true}, Attr{Key: "checked", Value: false}), "<input disabled>"},
		{"fragment", Fragment(Text("a"), nil, Text("b")), "ab"},
		{"component", Comp(Func(func() *Node { return Element("p", "c") })), "<p>c</p>"},
		{"link", Link("/users?id=1", "Users"), `<a data-link href="/users?id=1">Users</a>`},
		{"attr newline", Element("div", Data("x", "a\nb")), `<div data-x="a&#10;b"></div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTML(tt.node)
			if err != nil {
				t.Fatalf("HTML: %v", err)
			}
			if got != tt.want {
				t.Errorf("HTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

type loop struct{}

func (l loop) Render() *Node { return Comp(l) }

func TestHTMLRecursionBounded(t *testing.T) {
	if _, err := HTML(Comp(loop{})); err == nil {
		t.Error("expected an error for unbounded component nesting")
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want bool
	}{
		{"nil", nil, true},
		{"empty fragment", Empty(), true},
		{"nested empty", Fragment(Empty(), Text("")), true},
		{"text", Text("x"), false},
		{"element", Element("div"), false},
		{"component", Comp(Func(func() *Node { return nil })), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if KindFragment.String() != "Fragment" || Kind(99).String() != "Unknown" {
		t.Error("unexpected Kind strings")
	}
}
