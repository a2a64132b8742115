// Package proto defines the control-channel wire schema shared by the
// service and the client library: the fixed message header, the numeric
// message type identifiers, and the request/response payload codecs.
//
// Every control-channel frame is a 16-byte header followed by exactly
// header.PayloadSize bytes of payload. Encoding is little-endian throughout.
// This package only encodes and decodes bytes; it has no knowledge of
// sockets, pipes, or shared memory.
package proto
