package routing

import (
	"strings"
	"testing"

	"github.com/vango-dev/routeagent/pkg/route"
	"github.com/vango-dev/routeagent/pkg/view"
)

type userProps struct {
	ID string
}

func (p *userProps) FromRoute(r route.Route[navState]) bool {
	id, ok := strings.CutPrefix(r.Path, "/users/")
	if !ok || id == "" {
		return false
	}
	p.ID = id
	return true
}

func userPage(p userProps) view.Component {
	return view.Func(func() *view.Node {
		return view.Element("h1", "user "+p.ID)
	})
}

func TestComponent(t *testing.T) {
	opt := Component(func(r route.Route[navState]) (userProps, bool) {
		s := r.StateOrDefault()
		return userProps{ID: s.Name}, s.Name != ""
	}, userPage)

	if _, ok := opt.Match(route.New[navState]("/")); ok {
		t.Error("matched without state")
	}
	n, ok := opt.Match(route.WithState("/", navState{Name: "ada"}))
	if !ok {
		t.Fatal("expected match")
	}
	if s := renderText(t, n); s != "<h1>user ada</h1>" {
		t.Errorf("rendered %q", s)
	}
}

func TestComponentFromRoute(t *testing.T) {
	opt := ComponentFromRoute[navState](userPage)

	if _, ok := opt.Match(route.New[navState]("/teams/1")); ok {
		t.Error("matched foreign path")
	}
	n, ok := opt.Match(route.New[navState]("/users/42"))
	if !ok {
		t.Fatal("expected match")
	}
	if s := renderText(t, n); s != "<h1>user 42</h1>" {
		t.Errorf("rendered %q", s)
	}
}

func TestChildrenMakesLaterOptionsUnreachable(t *testing.T) {
	called := false
	options := []Option[navState]{
		When(pathIs("/a"), func(route.Route[navState]) *view.Node { return view.Text("a") }),
		Children(func(route.Route[navState]) *view.Node { return view.Text("fallback") }),
		Render(func(route.Route[navState]) (*view.Node, bool) { called = true; return view.Text("dead"), true }),
	}

	if got := Reachable(options); got != 2 {
		t.Errorf("Reachable = %d, want 2", got)
	}
	if s := renderText(t, OneOf(options, route.New[navState]("/zzz"), nil)); s != "fallback" {
		t.Errorf("rendered %q, want fallback", s)
	}
	if called {
		t.Error("option after Children was evaluated")
	}
	if got := Reachable(options[:1]); got != 1 {
		t.Errorf("Reachable without Children = %d, want 1", got)
	}
}

func TestOptionIdentity(t *testing.T) {
	fn := func(route.Route[navState]) (*view.Node, bool) { return nil, false }
	a := Render(fn)
	b := Render(fn)

	if !a.Equal(a) {
		t.Error("option not equal to itself")
	}
	if a.Equal(b) {
		t.Error("separately built options compared equal")
	}

	list := []Option[navState]{a, b}
	copied := append([]Option[navState](nil), list...)
	if !OptionsEqual(list, copied) {
		t.Error("copied list should be equal")
	}
	if OptionsEqual(list, []Option[navState]{b, a}) {
		t.Error("reordered list should differ")
	}
	if OptionsEqual(list, list[:1]) {
		t.Error("lists of different length should differ")
	}
	if !OptionsEqual[navState](nil, nil) {
		t.Error("nil lists should be equal")
	}
}
