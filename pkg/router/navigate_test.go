package router

import (
	"context"
	"testing"

	"github.com/vango-dev/routeagent/pkg/agent"
)

type captureSender struct {
	reqs []agent.Request[appState]
}

func (c *captureSender) Send(_ context.Context, req agent.Request[appState]) error {
	c.reqs = append(c.reqs, req)
	return nil
}

func TestNavigateKinds(t *testing.T) {
	tests := []struct {
		name string
		opts []NavigateOption
		want agent.RequestKind
	}{
		{"push", nil, agent.KindChangeRoute},
		{"replace", []NavigateOption{WithReplace()}, agent.KindReplaceRoute},
		{"silent push", []NavigateOption{WithoutBroadcast()}, agent.KindChangeRouteNoBroadcast},
		{"silent replace", []NavigateOption{WithReplace(), WithoutBroadcast()}, agent.KindReplaceRouteNoBroadcast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &captureSender{}
			if err := Navigate[appState](context.Background(), s, "/p", appState{Tab: 1}, tt.opts...); err != nil {
				t.Fatalf("Navigate: %v", err)
			}
			if len(s.reqs) != 1 {
				t.Fatalf("sent %d requests", len(s.reqs))
			}
			req := s.reqs[0]
			if req.Kind != tt.want {
				t.Errorf("kind = %s, want %s", req.Kind, tt.want)
			}
			if st, ok := req.Route.State(); !ok || st.Tab != 1 || req.Route.Path != "/p" {
				t.Errorf("route = %+v", req.Route)
			}
		})
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		path   string
		params map[string]any
		want   string
	}{
		{"/a", nil, "/a"},
		{"/a", map[string]any{"page": 2}, "/a?page=2"},
		{"/a?x=1#top", map[string]any{"y": "z"}, "/a?x=1&y=z#top"},
	}
	for _, tt := range tests {
		got, err := BuildURL(tt.path, tt.params)
		if err != nil {
			t.Fatalf("BuildURL(%q): %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("BuildURL(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	if _, err := BuildURL("%zz", map[string]any{"a": 1}); err == nil {
		t.Error("expected error for invalid path")
	}
}
