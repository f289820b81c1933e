// Package media wraps the realtime audio/video SDK used once a call is
// accepted. The call controller only sees the Transport interface, so
// tests drive the state machine with a fake.
package media

import "context"

// Transport is the contract the call controller relies on.
//
// Join must tolerate being called while already connected by forcing a
// leave-then-rejoin; double-joining the SDK is never allowed. Publish
// may only be called after a successful Join. Leave must release all
// local track resources and remove all SDK event handlers so repeated
// calls never leak handlers.
type Transport interface {
	Join(ctx context.Context, channel, userID string) error
	Publish(ctx context.Context, video bool) error
	Leave() error
	Connected() bool
}
