// Package audit buffers security events and delivers them to a [Sink].
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, logrus, no-op).
//   - [Dispatcher]: buffered async relay that either drops or blocks when full.
//   - [Event]: structured record keyed by a ULID.
//
// The engine decides which events to emit; this package only delivers them.
// It imports no goSSO package and performs no I/O beyond what a Sink does.
package audit
