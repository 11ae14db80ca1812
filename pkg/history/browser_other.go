//go:build !(js && wasm)

package history

// Browser is only available in js/wasm builds.
type Browser struct{}

// NewBrowser always fails outside a browser.
func NewBrowser() (*Browser, error) {
	return nil, ErrUnsupported
}

// Location implements History.
func (*Browser) Location() (path, query, fragment string) { return "", "", "" }

// Push implements History.
func (*Browser) Push(url, state string) error { return ErrUnsupported }

// Replace implements History.
func (*Browser) Replace(url, state string) error { return ErrUnsupported }

// State implements History.
func (*Browser) State() (string, bool) { return "", false }

// OnPopState implements History.
func (*Browser) OnPopState(fn func(state string, ok bool)) error { return ErrUnsupported }

// Close implements io.Closer.
func (*Browser) Close() error { return nil }
