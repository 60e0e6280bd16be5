// Package json wraps sonic with the encoding/json compatible configuration.
package json

import (
	"io"

	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

func Marshal(v interface{}) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v interface{}) error {
	return api.Unmarshal(data, v)
}

func MarshalToString(v interface{}) (string, error) {
	return api.MarshalToString(v)
}

func NewDecoder(r io.Reader) sonic.Decoder {
	return api.NewDecoder(r)
}

func NewEncoder(w io.Writer) sonic.Encoder {
	return api.NewEncoder(w)
}
