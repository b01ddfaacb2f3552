package prompt

import (
	"fmt"
	"sort"
	"sync"
)

// Format names a wire encoding of Document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Codec encodes and decodes documents for one wire format. Decode must preserve the
// order of the sections mapping.
type Codec interface {
	Encode(doc Document, pretty bool) ([]byte, error)
	Decode(data []byte) (Document, error)
}

var (
	codecsMu sync.RWMutex
	codecs   = map[Format]Codec{
		FormatJSON: jsonCodec{},
	}
)

// RegisterCodec makes a codec available for format. It is meant to be called from the
// init function of a codec package, the way database/sql drivers register themselves.
// Registering a format twice replaces the earlier codec.
func RegisterCodec(format Format, c Codec) {
	if c == nil {
		panic("prompt: RegisterCodec codec is nil")
	}
	codecsMu.Lock()
	defer codecsMu.Unlock()
	codecs[format] = c
}

// Formats lists the registered formats, sorted.
func Formats() []Format {
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	out := make([]Format, 0, len(codecs))
	for f := range codecs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func lookupCodec(format Format) (Codec, error) {
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	c, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("%w: no codec registered for %q", ErrCodecUnavailable, format)
	}
	return c, nil
}

// Encode serializes doc with the codec registered for format.
func Encode(format Format, doc Document, pretty bool) ([]byte, error) {
	c, err := lookupCodec(format)
	if err != nil {
		return nil, err
	}
	data, err := c.Encode(doc, pretty)
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", format, err)
	}
	return data, nil
}

// Decode parses data with the codec registered for format. Decoding failures are
// reported as ErrInvalidDocument.
func Decode(format Format, data []byte) (Document, error) {
	c, err := lookupCodec(format)
	if err != nil {
		return Document{}, err
	}
	doc, err := c.Decode(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, format, err)
	}
	return doc, nil
}
