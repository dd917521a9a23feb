package folioauth

import (
	"io"

	internalaudit "github.com/MrEthical07/folioauth/internal/audit"
)

// AuditEvent is one admin_logs entry as seen by sinks.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events. Emit must not block for long; wrap slow sinks by enabling
// Config.Audit.
type AuditSink = internalaudit.Sink

type NoOpSink = internalaudit.NoOpSink

type ChannelSink = internalaudit.ChannelSink

type JSONWriterSink = internalaudit.JSONWriterSink

type SlogSink = internalaudit.SlogSink

type MultiSink = internalaudit.MultiSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
