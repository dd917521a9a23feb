// Package audit carries admin audit-log events from the auth flows to their destinations.
//
// [Sink] implementations write events somewhere (a channel, JSON lines, slog, or the admin_logs
// table in internal/stores). [Dispatcher] decouples request handling from slow sinks with a
// bounded buffer.
//
// This package never decides which events to emit.
package audit
