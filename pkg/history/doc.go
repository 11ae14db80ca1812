// Package history adapts navigation histories for the routing agent.
//
// Three adapters are provided:
//
//   - Memory keeps an in-process stack of entries with a cursor and behaves
//     like a browser tab: Push truncates forward entries, Back and Forward
//     move the cursor and fire the pop-state callback asynchronously.
//   - Remote mirrors a browser on the other end of a connection. Writes are
//     sent as nav_push/nav_replace frames and client popstate frames update
//     the mirror.
//   - Browser (js/wasm builds only) binds window.history and
//     window.location directly.
//
// Adapters deal only in strings: the state payload is serialized by the
// caller before Push/Replace and decoded after State/OnPopState.
package history
