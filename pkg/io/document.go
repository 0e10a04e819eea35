package io

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Wire types used when writing. Every field is emitted explicitly.

type document struct {
	Scenes      []scene `json:"scenes"`
	LooseLayers []layer `json:"looseLayers"`
}

type scene struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	X          jsonNum  `json:"x"`
	Y          jsonNum  `json:"y"`
	Width      jsonNum  `json:"width"`
	Height     jsonNum  `json:"height"`
	Body       string   `json:"body"`
	Background string   `json:"background"`
	Layers     []layer  `json:"layers"`
	Choices    []choice `json:"choices"`
}

// layer is the union of both layer kinds. Fields of the other kind are nil
// and omitted.
type layer struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	X      jsonNum `json:"x"`
	Y      jsonNum `json:"y"`
	Width  jsonNum `json:"width"`
	Height jsonNum `json:"height"`
	ZIndex int     `json:"zIndex"`

	// text
	Content    *string  `json:"content,omitempty"`
	FontFamily *string  `json:"fontFamily,omitempty"`
	FontSize   *jsonNum `json:"fontSize,omitempty"`
	Color      *string  `json:"color,omitempty"`
	Bold       *bool    `json:"bold,omitempty"`
	Italic     *bool    `json:"italic,omitempty"`
	Underline  *bool    `json:"underline,omitempty"`

	// image
	Src *string `json:"src,omitempty"`
}

type choice struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	Target       *string `json:"target"`
	X            jsonNum `json:"x"`
	Y            jsonNum `json:"y"`
	Width        jsonNum `json:"width"`
	Height       jsonNum `json:"height"`
	Background   string  `json:"background"`
	Color        string  `json:"color"`
	Bold         bool    `json:"bold"`
	FontSize     jsonNum `json:"fontSize"`
	BorderRadius jsonNum `json:"borderRadius"`
	Group        string  `json:"group"`
}

// jsonNum writes non-finite values as null, which reads back as missing.
type jsonNum float64

func (n jsonNum) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// Wire types used when reading. Every scalar is lenient: a value of the wrong
// JSON type decodes as missing instead of failing the whole document.

type sceneIn struct {
	ID         str  `json:"id"`
	Title      str  `json:"title"`
	X          num  `json:"x"`
	Y          num  `json:"y"`
	Width      num  `json:"width"`
	Height     num  `json:"height"`
	Body       str  `json:"body"`
	Background str  `json:"background"`
	Layers     list `json:"layers"`
	Choices    list `json:"choices"`
}

type layerIn struct {
	ID     str `json:"id"`
	Type   str `json:"type"`
	X      num `json:"x"`
	Y      num `json:"y"`
	Width  num `json:"width"`
	Height num `json:"height"`
	ZIndex num `json:"zIndex"`

	Content    str  `json:"content"`
	FontFamily str  `json:"fontFamily"`
	FontSize   num  `json:"fontSize"`
	Color      str  `json:"color"`
	Bold       flag `json:"bold"`
	Italic     flag `json:"italic"`
	Underline  flag `json:"underline"`

	Src str `json:"src"`
}

type choiceIn struct {
	ID           str  `json:"id"`
	Text         str  `json:"text"`
	Target       str  `json:"target"`
	X            num  `json:"x"`
	Y            num  `json:"y"`
	Width        num  `json:"width"`
	Height       num  `json:"height"`
	Background   str  `json:"background"`
	Color        str  `json:"color"`
	Bold         flag `json:"bold"`
	FontSize     num  `json:"fontSize"`
	BorderRadius num  `json:"borderRadius"`
	Group        str  `json:"group"`
}

// num accepts a JSON number or a numeric string.
type num struct {
	v   float64
	set bool
}

func (n *num) UnmarshalJSON(b []byte) error {
	n.v, n.set = parseNumber(b)
	return nil
}

// value returns the value, or NaN when it was missing or invalid.
func (n num) value() float64 {
	if !n.set {
		return math.NaN()
	}
	return n.v
}

// integer returns the value truncated to an integer, or 0 when missing.
func (n num) integer() int {
	if !n.set || math.Abs(n.v) > math.MaxInt32 {
		return 0
	}
	return int(n.v)
}

func parseNumber(b []byte) (float64, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0, false
	}
	var s string
	switch b[0] {
	case '"':
		if json.Unmarshal(b, &s) != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		s = string(b)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// str accepts a JSON string; numbers are kept as their literal text.
type str struct {
	v   string
	set bool
}

func (s *str) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch {
	case b[0] == '"':
		s.set = json.Unmarshal(b, &s.v) == nil
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		s.v, s.set = string(b), true
	}
	return nil
}

// flag accepts a JSON boolean or the strings "true" and "false".
type flag struct {
	v   bool
	set bool
}

func (f *flag) UnmarshalJSON(b []byte) error {
	switch strings.Trim(string(bytes.TrimSpace(b)), `"`) {
	case "true":
		f.v, f.set = true, true
	case "false":
		f.v, f.set = false, true
	}
	return nil
}

// list accepts a JSON array of raw elements; anything else is an empty list.
type list []json.RawMessage

func (l *list) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if json.Unmarshal(b, &raw) != nil {
		*l = nil
		return nil
	}
	*l = raw
	return nil
}

// decodeObject decodes raw into v when raw is a JSON object. Elements of any
// other type are skipped by the caller.
func decodeObject(raw json.RawMessage, v any) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
