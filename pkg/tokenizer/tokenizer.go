package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the vocabulary used for every collection. Changing it
// invalidates stored chunk boundaries.
const DefaultEncoding = "cl100k_base"

// Codec wraps one fixed tiktoken encoding. It is stateless and safe for
// concurrent use.
type Codec struct {
	enc *tiktoken.Tiktoken
}

// New returns a codec for the given encoding name, or the default when the
// name is empty.
func New(encoding string) (*Codec, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %q: %w", encoding, err)
	}

	return &Codec{enc: enc}, nil
}

func (c *Codec) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

func (c *Codec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

func (c *Codec) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}
