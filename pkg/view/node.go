package view

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement   Kind = iota // <div>, <a>, etc.
	KindText                  // Plain text node
	KindFragment              // Grouping without wrapper
	KindComponent             // Nested component
	KindRaw                   // Raw HTML, written unescaped
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// Node is one node of a render result.
type Node struct {
	Kind     Kind
	Tag      string    // Element tag name
	Props    Props     // Element attributes
	Children []*Node   // Element and fragment children
	Text     string    // For KindText and KindRaw
	Comp     Component // For KindComponent
}

// Props holds element attributes.
type Props map[string]any

// Attr is a single attribute passed to Element.
type Attr struct {
	Key   string
	Value any
}

// Component is anything that can render to a Node.
type Component interface {
	Render() *Node
}

// FuncComponent wraps a render function.
type FuncComponent struct {
	render func() *Node
}

// Render implements Component.
func (f *FuncComponent) Render() *Node {
	return f.render()
}

// Func creates a component from a render function.
func Func(render func() *Node) Component {
	return &FuncComponent{render: render}
}

// Element creates an element node. Arguments can be nil, Attr, []Attr,
// *Node, []*Node, Component or string (a text child).
func Element(tag string, args ...any) *Node {
	n := &Node{Kind: KindElement, Tag: tag, Props: make(Props)}
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case Attr:
			if v.Key != "" {
				n.Props[v.Key] = v.Value
			}
		case []Attr:
			for _, a := range v {
				if a.Key != "" {
					n.Props[a.Key] = a.Value
				}
			}
		case *Node:
			if v != nil {
				n.Children = append(n.Children, v)
			}
		case []*Node:
			for _, c := range v {
				if c != nil {
					n.Children = append(n.Children, c)
				}
			}
		case Component:
			n.Children = append(n.Children, Comp(v))
		case string:
			n.Children = append(n.Children, Text(v))
		}
	}
	return n
}

// Text creates a text node.
func Text(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

// Raw creates a node whose HTML is written verbatim.
func Raw(html string) *Node {
	return &Node{Kind: KindRaw, Text: html}
}

// Fragment groups children without a wrapper element.
func Fragment(children ...*Node) *Node {
	n := &Node{Kind: KindFragment}
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// Comp wraps a component in a node.
func Comp(c Component) *Node {
	return &Node{Kind: KindComponent, Comp: c}
}

// Empty returns the empty render result: a fragment with no children.
func Empty() *Node {
	return &Node{Kind: KindFragment}
}

// IsEmpty reports whether n renders nothing.
func (n *Node) IsEmpty() bool {
	if n == nil {
		return true
	}
	switch n.Kind {
	case KindFragment:
		for _, c := range n.Children {
			if !c.IsEmpty() {
				return false
			}
		}
		return true
	case KindText, KindRaw:
		return n.Text == ""
	case KindComponent:
		return n.Comp == nil
	}
	return false
}

// ID sets the id attribute.
func ID(id string) Attr { return Attr{Key: "id", Value: id} }

// Class sets the class attribute.
func Class(class string) Attr { return Attr{Key: "class", Value: class} }

// Href sets the href attribute.
func Href(url string) Attr { return Attr{Key: "href", Value: url} }

// Data creates a data-* attribute.
func Data(key, value string) Attr { return Attr{Key: "data-" + key, Value: value} }

// Link creates an anchor the thin client intercepts and turns into a
// navigate frame instead of a page load.
func Link(url string, args ...any) *Node {
	return Element("a", append([]any{Href(url), Attr{Key: "data-link", Value: true}}, args...)...)
}
