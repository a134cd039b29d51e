package usecase

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"Prism/internal/domain/models"
)

// EncodeFrame serialises a frame as msgpack using its json field names.
func EncodeFrame(f *models.Frame) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

func DecodeFrame(b []byte) (*models.Frame, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	var f models.Frame
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &f, nil
}
