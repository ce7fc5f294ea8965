package frame

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/wagiedev/agent-bridge-go/internal/errors"
)

// Codec converts frames to and from their wire representation.
type Codec interface {
	// Name identifies the codec ("json" or "cbor").
	Name() string

	// Binary reports whether encoded frames travel as binary messages.
	Binary() bool

	// Encode serializes a frame.
	Encode(f *Frame) ([]byte, error)

	// Decode parses a frame. Failures are returned as *errors.MalformedFrameError.
	Decode(data []byte) (*Frame, error)
}

// Compile-time verification that the codecs implement Codec.
var (
	_ Codec = JSON{}
	_ Codec = (*CBOR)(nil)
)

// JSON encodes frames as JSON text.
type JSON struct{}

// Name implements Codec.
func (JSON) Name() string { return "json" }

// Binary implements Codec.
func (JSON) Binary() bool { return false }

// Encode implements Codec.
func (JSON) Encode(f *Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}

	return data, nil
}

// Decode implements Codec.
func (JSON) Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &errors.MalformedFrameError{Raw: data, Err: err}
	}

	if err := validate(&f); err != nil {
		return nil, &errors.MalformedFrameError{Raw: data, Err: err}
	}

	return &f, nil
}

// CBOR encodes frames with Core Deterministic Encoding (RFC 8949 §4.2).
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR creates a CBOR codec.
//
// Payloads decoded into any use map[string]any for maps so that both codecs
// hand the router the same shapes.
func NewCBOR() (*CBOR, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}

	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor decoder: %w", err)
	}

	return &CBOR{enc: enc, dec: dec}, nil
}

// Name implements Codec.
func (*CBOR) Name() string { return "cbor" }

// Binary implements Codec.
func (*CBOR) Binary() bool { return true }

// Encode implements Codec.
func (c *CBOR) Encode(f *Frame) ([]byte, error) {
	data, err := c.enc.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}

	return data, nil
}

// Decode implements Codec.
func (c *CBOR) Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := c.dec.Unmarshal(data, &f); err != nil {
		return nil, &errors.MalformedFrameError{Raw: data, Err: err}
	}

	if err := validate(&f); err != nil {
		return nil, &errors.MalformedFrameError{Raw: data, Err: err}
	}

	return &f, nil
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "cbor":
		c, err := NewCBOR()
		if err != nil {
			return nil, err
		}

		return c, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

func validate(f *Frame) error {
	if f.Type == "" {
		return fmt.Errorf("missing or invalid 'type' field")
	}

	return nil
}
