package proto

import (
	"encoding/binary"
	"errors"
)

// HeaderSize is the fixed on-wire size of a control-channel message header.
const HeaderSize = 16

// MessageType identifies a control-channel request or response kind. Values
// are stable numeric identifiers; do not renumber existing entries.
type MessageType uint32

const (
	MessageConnect                MessageType = 1
	MessageDisconnect             MessageType = 2
	MessageCreateSession          MessageType = 3
	MessageDestroySession         MessageType = 4
	MessageAllocateHandle         MessageType = 8
	MessageGetNextEvent           MessageType = 9
	MessageGetRuntimeProperties   MessageType = 10
	MessageGetSystemProperties    MessageType = 11
	MessageGetViewConfigurations  MessageType = 12
	MessageGetInteractionProfiles MessageType = 13
	MessageGetInputStateBool      MessageType = 14
	MessageGetInputStateFloat     MessageType = 15
	MessageGetInputStateVec2      MessageType = 16
	MessageRequestExitSession     MessageType = 17
	MessageResponse               MessageType = 100
)

func (t MessageType) String() string {
	switch t {
	case MessageConnect:
		return "Connect"
	case MessageDisconnect:
		return "Disconnect"
	case MessageCreateSession:
		return "CreateSession"
	case MessageDestroySession:
		return "DestroySession"
	case MessageAllocateHandle:
		return "AllocateHandle"
	case MessageGetNextEvent:
		return "GetNextEvent"
	case MessageGetRuntimeProperties:
		return "GetRuntimeProperties"
	case MessageGetSystemProperties:
		return "GetSystemProperties"
	case MessageGetViewConfigurations:
		return "GetViewConfigurations"
	case MessageGetInteractionProfiles:
		return "GetInteractionProfiles"
	case MessageGetInputStateBool:
		return "GetInputStateBool"
	case MessageGetInputStateFloat:
		return "GetInputStateFloat"
	case MessageGetInputStateVec2:
		return "GetInputStateVec2"
	case MessageRequestExitSession:
		return "RequestExitSession"
	case MessageResponse:
		return "Response"
	default:
		return "Unknown"
	}
}

// Header is the fixed 16-byte frame that precedes every control-channel
// payload: type, sequence, payload_size, reserved (always zero on the wire).
type Header struct {
	Type        MessageType
	Sequence    uint32
	PayloadSize uint32
	Reserved    uint32
}

// Encode writes the header into a freshly allocated HeaderSize-byte slice.
func (h Header) Encode() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(h.Type))
	binary.LittleEndian.PutUint32(b[4:8], h.Sequence)
	binary.LittleEndian.PutUint32(b[8:12], h.PayloadSize)
	binary.LittleEndian.PutUint32(b[12:16], 0)
	return b
}

// DecodeHeader parses a HeaderSize-byte buffer into a Header.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errors.New("proto: header too short")
	}
	return Header{
		Type:        MessageType(binary.LittleEndian.Uint32(b[0:4])),
		Sequence:    binary.LittleEndian.Uint32(b[4:8]),
		PayloadSize: binary.LittleEndian.Uint32(b[8:12]),
		Reserved:    binary.LittleEndian.Uint32(b[12:16]),
	}, nil
}
