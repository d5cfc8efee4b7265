package protocol

import "fmt"

// ErrorCode classifies an error frame.
type ErrorCode uint16

const (
	ErrUnknown      ErrorCode = 0x0000
	ErrInvalidFrame ErrorCode = 0x0001 // frame could not be decoded
	ErrUnknownKey   ErrorCode = 0x0002 // event target is not keyed
	ErrServerError  ErrorCode = 0x0100
)

func (ec ErrorCode) String() string {
	switch ec {
	case ErrUnknown:
		return "Unknown"
	case ErrInvalidFrame:
		return "InvalidFrame"
	case ErrUnknownKey:
		return "UnknownKey"
	case ErrServerError:
		return "ServerError"
	default:
		return fmt.Sprintf("ErrorCode(%#04x)", uint16(ec))
	}
}

// ErrorMessage is the payload of a FrameError.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
}

func (em *ErrorMessage) Error() string {
	return em.Code.String() + ": " + em.Message
}

// EncodeErrorMessage encodes em.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	return e.Bytes()
}

// DecodeErrorMessage decodes a FrameError payload.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	msg, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	if err := d.Done(); err != nil {
		return nil, err
	}
	return &ErrorMessage{Code: ErrorCode(code), Message: msg}, nil
}
