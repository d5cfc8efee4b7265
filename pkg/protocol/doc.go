// Package protocol implements the binary frames wirehost streams to a
// remote mirror of a host tree.
//
// Every message is a Frame: a 4-byte header (type, flags, big-endian
// payload length) and up to 64KiB of payload.
//
// # Frame Types
//
//   - FrameHello (0x00): protocol version, session id and root handle
//   - FrameOps (0x01): a batch of host mutations, split across frames
//     with FlagMore when it does not fit one
//   - FrameEvent (0x02): an event raised on a mirrored element
//   - FrameError (0x03): error code and message
//
// # Encoding
//
// Integers are protobuf-style varints and strings are varint
// length-prefixed. Op payloads mirror host.Adapter one to one:
//
//	Create       [0x01][handle][tag]
//	SetAttribute [0x02][handle][name][value]
//	SetText      [0x05][handle][text][at]
//	SetChildren  [0x06][handle][count][handle...]
//
// Decoders bound string sizes and list counts (MaxStringLen, MaxCount)
// and reject trailing bytes.
package protocol
