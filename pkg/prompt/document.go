package prompt

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Document is the plain-data form of a Builder used for interchange.
type Document struct {
	Meta     map[string]any `json:"meta" yaml:"meta" jsonschema:"oneof_type=object;null"`
	Order    []string       `json:"order" yaml:"order" jsonschema:"oneof_type=array;null"`
	Sections Sections       `json:"sections" yaml:"sections"`
}

// SectionData is the plain-data form of a Section. Optional fields are pointers so that
// "absent" survives a round trip as null.
type SectionData struct {
	Name       string         `json:"name" yaml:"name"`
	Content    string         `json:"content" yaml:"content"`
	MaxChars   *int           `json:"max_chars" yaml:"max_chars" jsonschema:"oneof_type=integer;null"`
	Title      *string        `json:"title" yaml:"title" jsonschema:"oneof_type=string;null"`
	IncludeIf  map[string]any `json:"include_if" yaml:"include_if" jsonschema:"oneof_type=object;null"`
	HeaderSize int            `json:"header_size" yaml:"header_size"`
}

// Sections keeps section data in insertion order. Codecs must preserve that order.
type Sections struct {
	m *orderedmap.OrderedMap[string, SectionData]
}

// NewSections returns an empty ordered section map.
func NewSections() Sections {
	return Sections{m: orderedmap.New[string, SectionData]()}
}

func (s *Sections) init() {
	if s.m == nil {
		s.m = orderedmap.New[string, SectionData]()
	}
}

// Set stores data under key, keeping the position of an existing key.
func (s *Sections) Set(key string, data SectionData) {
	s.init()
	s.m.Set(key, data)
}

// Get returns the data stored under key.
func (s Sections) Get(key string) (SectionData, bool) {
	if s.m == nil {
		return SectionData{}, false
	}
	return s.m.Get(key)
}

// Len returns the number of sections.
func (s Sections) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Keys returns the section keys in order.
func (s Sections) Keys() []string {
	if s.m == nil {
		return nil
	}
	keys := make([]string, 0, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

func (s Sections) MarshalJSON() ([]byte, error) {
	if s.m == nil {
		return []byte("{}"), nil
	}
	return s.m.MarshalJSON()
}

func (s *Sections) UnmarshalJSON(data []byte) error {
	s.m = orderedmap.New[string, SectionData]()
	if string(data) == "null" {
		return nil
	}
	return s.m.UnmarshalJSON(data)
}

// Document returns the plain-data form of the builder.
func (b *Builder) Document() Document {
	doc := Document{
		Meta:     b.meta,
		Order:    append([]string{}, b.order...),
		Sections: NewSections(),
	}
	for pair := b.sections.Oldest(); pair != nil; pair = pair.Next() {
		doc.Sections.Set(pair.Key, sectionData(pair.Value))
	}
	return doc
}

func sectionData(s *Section) SectionData {
	d := SectionData{
		Name:       s.Name,
		Content:    s.Content,
		HeaderSize: ClampHeaderSize(s.HeaderSize),
	}
	if s.MaxChars > 0 {
		n := s.MaxChars
		d.MaxChars = &n
	}
	if s.Title != "" {
		t := s.Title
		d.Title = &t
	}
	if s.IncludeIf != nil {
		d.IncludeIf = map[string]any(s.IncludeIf.Clone())
	}
	return d
}

// FromDocument builds a Builder from its plain-data form. Sections without a name take
// their key; a missing header size means 1; a missing order means the section keys in
// order. Stale names in the order are kept and skipped at compile time.
func FromDocument(doc Document, opts ...Option) *Builder {
	b := New(opts...)
	if doc.Meta != nil {
		b.meta = doc.Meta
	}
	for _, key := range doc.Sections.Keys() {
		d, _ := doc.Sections.Get(key)
		name := d.Name
		if name == "" {
			name = key
		}
		sec := &Section{
			Name:       name,
			Content:    d.Content,
			HeaderSize: ClampHeaderSize(d.HeaderSize),
		}
		if d.MaxChars != nil {
			sec.MaxChars = *d.MaxChars
		}
		if d.Title != nil {
			sec.Title = *d.Title
		}
		if d.IncludeIf != nil {
			sec.IncludeIf = Conditions(d.IncludeIf)
		}
		b.sections.Set(key, sec)
	}
	if doc.Order != nil {
		b.order = append([]string{}, doc.Order...)
	} else {
		b.order = doc.Sections.Keys()
	}
	return b
}

// ToJSON encodes the builder's document. Pretty output is indented with four spaces.
func (b *Builder) ToJSON(pretty bool) (string, error) {
	data, err := Encode(FormatJSON, b.Document(), pretty)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON decodes a builder from JSON produced by ToJSON.
func FromJSON(source string, opts ...Option) (*Builder, error) {
	doc, err := Decode(FormatJSON, []byte(source))
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, opts...), nil
}

// ToYAML encodes the builder's document as YAML. It fails with ErrCodecUnavailable
// unless a YAML codec is registered.
func (b *Builder) ToYAML() (string, error) {
	data, err := Encode(FormatYAML, b.Document(), true)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromYAML decodes a builder from YAML. It fails with ErrCodecUnavailable unless a YAML
// codec is registered, and with ErrInvalidDocument if the root is not a mapping.
func FromYAML(source string, opts ...Option) (*Builder, error) {
	doc, err := Decode(FormatYAML, []byte(source))
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, opts...), nil
}

type jsonCodec struct{}

func (jsonCodec) Encode(doc Document, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(doc, "", "    ")
	}
	return json.Marshal(doc)
}

func (jsonCodec) Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}
