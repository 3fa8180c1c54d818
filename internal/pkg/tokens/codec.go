package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Codec encodes text to model tokens and back. The runtime implementation
// wraps tiktoken so counts match what the generation API bills; tests may
// substitute a fixture codec.
type Codec interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenCodec struct {
	encoding *tiktoken.Tiktoken
}

// NewCodecForModel returns a Codec using the tokenization scheme of the given
// generation model.
func NewCodecForModel(model string) (Codec, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("load encoding for model %q: %w", model, err)
	}
	return &tiktokenCodec{encoding: encoding}, nil
}

// NewCodecForEncoding returns a Codec for a named tiktoken encoding, such as
// cl100k_base. Useful when the model is unknown to tiktoken.
func NewCodecForEncoding(name string) (Codec, error) {
	encoding, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", name, err)
	}
	return &tiktokenCodec{encoding: encoding}, nil
}

func (c *tiktokenCodec) Encode(text string) []int {
	return c.encoding.Encode(text, nil, nil)
}

func (c *tiktokenCodec) Decode(tokens []int) string {
	return c.encoding.Decode(tokens)
}
