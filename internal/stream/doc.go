// Package stream implements the per-client quote stream.
//
// A Session moves through three states:
//
//	Subscribing -> Streaming -> Closed
//
// It registers the client's symbols, subscribes to the quote channel, writes
// a snapshot frame and then forwards every published quote map filtered to
// the client's symbols. The subscription is released on every exit path.
//
// Frames are written through a FrameWriter; SSEWriter frames them as
// text/event-stream ("data: {...}\n\n") and WSWriter as WebSocket text
// messages.
package stream
