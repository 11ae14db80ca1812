package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeValidFrames(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want FrameType
	}{
		{"hello", `{"type":"hello","location":{"path":"/a","query":"?x=1"}}`, FrameHello},
		{"popstate with state", `{"type":"popstate","location":{"path":"/b","state":"{\"tab\":1}"}}`, FramePopState},
		{"navigate", `{"type":"navigate","url":"/c","replace":true}`, FrameNavigate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Decode([]byte(tt.in))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if f.Type != tt.want {
				t.Errorf("Type = %q, want %q", f.Type, tt.want)
			}
		})
	}
}

func TestDecodePopStateKeepsState(t *testing.T) {
	f, err := Decode([]byte(`{"type":"popstate","location":{"path":"/b","state":"s0"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Location.State == nil || *f.Location.State != "s0" {
		t.Errorf("State = %v, want s0", f.Location.State)
	}
}

func TestDecodeRejectsInvalid(t *testing.T) {
	tests := []string{
		`not json`,
		`{"type":"hello"}`,
		`{"type":"navigate"}`,
		`{"type":"bogus"}`,
		`{"type":"popstate"}`,
		`{"type":"hello","location":{"path":"/` + strings.Repeat("a", MaxMessageSize) + `"}}`,
	}

	for _, in := range tests {
		if _, err := Decode([]byte(in)); !errors.Is(err, ErrInvalidFrameData) {
			t.Errorf("Decode(%.40q) error = %v, want ErrInvalidFrameData", in, err)
		}
	}
}

func TestEncodeNavFrames(t *testing.T) {
	data, err := Encode(NewNavPush("/b", `{"tab":1}`))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	f, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Type != FrameNavPush || f.URL != "/b" || f.State == nil || *f.State != `{"tab":1}` {
		t.Errorf("round trip = %+v", f)
	}

	f = NewNavReplace("/c", "")
	if f.Type != FrameNavReplace || f.State == nil {
		t.Errorf("NewNavReplace = %+v", f)
	}
}

func TestErrorCodeString(t *testing.T) {
	if ErrInvalidFrame.String() != "InvalidFrame" {
		t.Errorf("got %q", ErrInvalidFrame.String())
	}
	if ErrorCode(0x9999).String() != "Unknown" {
		t.Errorf("got %q", ErrorCode(0x9999).String())
	}
	f := NewError(ErrHandshake, "bad hello")
	if err := f.Validate(); err != nil {
		t.Errorf("error frame should validate: %v", err)
	}
	if NewRender("<p>x</p>").HTML != "<p>x</p>" {
		t.Error("NewRender lost html")
	}
}
