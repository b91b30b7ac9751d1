package opcall

import "encoding/json"

// Codec is the injected decode capability used for object-shaped parameters.
// The raw string supplied by the caller is treated as a document and decoded
// into the declared parameter type.
type Codec interface {
	Unmarshal(data []byte, v any) error
}

// jsonCodec is the default Codec, backed by encoding/json.
type jsonCodec struct{}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
