// Package routepath normalizes the URLs that routes are made of.
//
// Navigation requests arrive from browsers, links and the command line. They
// are canonicalized before they reach a route agent so that "/docs/", "/docs"
// and "/docs/./" name one history entry, and so that a request can never
// smuggle an absolute URL into pushState.
package routepath

import (
	"errors"
	"net/url"
	"strings"

	"github.com/vango-dev/routeagent/pkg/route"
)

// Result is a canonicalized route URL split into its parts. Query keeps its
// leading "?" and Fragment its leading "#", matching route.SplitRouteString.
type Result struct {
	Path     string
	Query    string
	Fragment string

	// Changed reports whether the path differs from the input's.
	Changed bool
}

// String reassembles the route URL.
func (r Result) String() string {
	return route.FormatRouteString(r.Path, r.Query, r.Fragment)
}

var (
	ErrAbsoluteURL          = errors.New("routepath: absolute URLs are not routes")
	ErrBackslash            = errors.New("routepath: path contains backslash")
	ErrNullByte             = errors.New("routepath: path contains null byte")
	ErrInvalidPercentEscape = errors.New("routepath: invalid percent escape")
	ErrEscapesRoot          = errors.New("routepath: path escapes root via ..")
)

// Canonicalize normalizes a route URL.
//
// The path loses its trailing slash (except "/"), repeated slashes and "."
// segments; ".." segments are resolved. A missing leading slash is added.
// Query and fragment pass through untouched.
//
// Backslashes, NUL bytes, malformed percent escapes, ".." above the root and
// anything carrying a scheme or host are rejected.
func Canonicalize(input string) (Result, error) {
	if strings.HasPrefix(input, "//") || hasScheme(input) {
		return Result{}, ErrAbsoluteURL
	}

	path, query, fragment := route.SplitRouteString(input)
	clean, err := cleanPath(path)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Path:     clean,
		Query:    query,
		Fragment: fragment,
		Changed:  clean != path,
	}, nil
}

// URL canonicalizes input and returns it reassembled.
func URL(input string) (string, error) {
	r, err := Canonicalize(input)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

func cleanPath(path string) (string, error) {
	if strings.Contains(path, `\`) {
		return "", ErrBackslash
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return "", ErrNullByte
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return "", err
		}
	}

	var out []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return "", ErrEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	return "/" + strings.Join(out, "/"), nil
}

// hasScheme reports whether s starts with "scheme:" before any path
// character.
func hasScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ':':
			return i > 0
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return false
}

func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Segments splits a path into its non-empty segments, percent-decoded.
// A segment that does not decode is returned as written.
func Segments(path string) []string {
	segments := []string{}
	for _, s := range strings.Split(path, "/") {
		if s == "" {
			continue
		}
		if decoded, err := url.PathUnescape(s); err == nil {
			s = decoded
		}
		segments = append(segments, s)
	}
	return segments
}
