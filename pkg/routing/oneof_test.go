package routing

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/vango-dev/routeagent/pkg/route"
	"github.com/vango-dev/routeagent/pkg/view"
)

type navState struct {
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func errorLines(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), "level=ERROR")
}

func renderText(t *testing.T, n *view.Node) string {
	t.Helper()
	s, err := view.HTML(n)
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	return s
}

func pathIs(path string) Predicate[navState] {
	return func(r route.Route[navState]) bool { return r.Path == path }
}

func TestOneOfShortCircuits(t *testing.T) {
	var evaluated []string
	option := func(name string, match bool) Option[navState] {
		return Render(func(route.Route[navState]) (*view.Node, bool) {
			evaluated = append(evaluated, name)
			if !match {
				return nil, false
			}
			return view.Text(name), true
		})
	}

	logger, buf := captureLogger()
	options := []Option[navState]{option("skip", false), option("a", true), option("b", true), option("c", true)}
	got := OneOf(options, route.New[navState]("/"), logger)

	if s := renderText(t, got); s != "a" {
		t.Errorf("rendered %q, want a", s)
	}
	if strings.Join(evaluated, ",") != "skip,a" {
		t.Errorf("evaluated %v, want [skip a]", evaluated)
	}
	if errorLines(buf) != 0 {
		t.Errorf("unexpected error log: %s", buf)
	}
}

func TestOneOfNoMatch(t *testing.T) {
	tests := []struct {
		name    string
		options []Option[navState]
	}{
		{"empty list", nil},
		{"nothing matches", []Option[navState]{When(pathIs("/x"), func(route.Route[navState]) *view.Node { return view.Text("x") })}},
		{"zero option", []Option[navState]{{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := captureLogger()
			got := OneOf(tt.options, route.New[navState]("/nowhere"), logger)
			if got == nil || !got.IsEmpty() {
				t.Errorf("OneOf = %+v, want empty view", got)
			}
			if n := errorLines(buf); n != 1 {
				t.Errorf("logged %d errors, want exactly 1: %s", n, buf)
			}
			if !strings.Contains(buf.String(), NoMatchMessage) {
				t.Errorf("log %q missing %q", buf, NoMatchMessage)
			}
		})
	}
}

func TestResolveIndex(t *testing.T) {
	options := []Option[navState]{
		When(pathIs("/a"), func(route.Route[navState]) *view.Node { return view.Text("a") }),
		Render(func(route.Route[navState]) (*view.Node, bool) { return nil, true }),
	}

	if _, i, ok := Resolve(options, route.New[navState]("/a")); !ok || i != 0 {
		t.Errorf("Resolve(/a) = %d, %v", i, ok)
	}
	n, i, ok := Resolve(options, route.New[navState]("/b"))
	if !ok || i != 1 {
		t.Errorf("Resolve(/b) = %d, %v", i, ok)
	}
	if n == nil || !n.IsEmpty() {
		t.Error("a nil match result should resolve to an empty view")
	}
}
