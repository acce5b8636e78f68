package engine

import (
	"bytes"
	"io"

	j "github.com/goccy/go-json"
)

// Kind represents token kinds from a JSON token stream.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token is one lexical element of the input.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
}

// TokenSource is the minimal interface the decoder consumes.
type TokenSource interface {
	NextToken() (Token, error)
}

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	expectingKey bool
}

// jsonSource adapts a go-json Decoder to TokenSource, telling keys apart from string values.
type jsonSource struct {
	dec   *j.Decoder
	stack []frame
}

// NewJSONReader wraps r as a TokenSource. Numbers are kept as their literal text.
func NewJSONReader(r io.Reader) TokenSource {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	return &jsonSource{dec: dec}
}

// NewJSONBytes wraps b as a TokenSource.
func NewJSONBytes(b []byte) TokenSource { return NewJSONReader(bytes.NewReader(b)) }

func (s *jsonSource) valueDone() {
	if n := len(s.stack); n > 0 {
		top := &s.stack[n-1]
		if top.kind == kindObject && !top.expectingKey {
			top.expectingKey = true
		}
	}
}

func (s *jsonSource) NextToken() (Token, error) {
	tok, err := s.dec.Token()
	if err != nil {
		return Token{}, err
	}
	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, frame{kind: kindObject, expectingKey: true})
			return Token{Kind: KindBeginObject}, nil
		case '[':
			s.stack = append(s.stack, frame{kind: kindArray})
			return Token{Kind: KindBeginArray}, nil
		case '}', ']':
			if n := len(s.stack); n > 0 {
				s.stack = s.stack[:n-1]
			}
			s.valueDone()
			if v == '}' {
				return Token{Kind: KindEndObject}, nil
			}
			return Token{Kind: KindEndArray}, nil
		}
	case string:
		if n := len(s.stack); n > 0 {
			top := &s.stack[n-1]
			if top.kind == kindObject && top.expectingKey {
				top.expectingKey = false
				return Token{Kind: KindKey, String: v}, nil
			}
		}
		s.valueDone()
		return Token{Kind: KindString, String: v}, nil
	case bool:
		s.valueDone()
		return Token{Kind: KindBool, Bool: v}, nil
	case j.Number:
		s.valueDone()
		return Token{Kind: KindNumber, Number: string(v)}, nil
	}
	s.valueDone()
	return Token{Kind: KindNull}, nil
}

// DecodeAny builds a primitive tree (map[string]any, []any, string, j.Number, bool, nil)
// from the token stream. Trailing data after the first value is rejected.
func DecodeAny(src TokenSource) (any, error) {
	tok, err := src.NextToken()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	v, err := decodeValue(src, tok)
	if err != nil {
		return nil, err
	}
	if _, err := src.NextToken(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, ErrTrailingData
	}
	return v, nil
}

func decodeValue(src TokenSource, tok Token) (any, error) {
	switch tok.Kind {
	case KindBeginObject:
		return decodeObject(src)
	case KindBeginArray:
		return decodeArray(src)
	case KindString:
		return tok.String, nil
	case KindNumber:
		return j.Number(tok.Number), nil
	case KindBool:
		return tok.Bool, nil
	case KindNull:
		return nil, nil
	default:
		return nil, io.ErrUnexpectedEOF
	}
}

func decodeObject(src TokenSource) (any, error) {
	m := make(map[string]any)
	for {
		tok, err := src.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndObject {
			return m, nil
		}
		if tok.Kind != KindKey {
			return nil, io.ErrUnexpectedEOF
		}
		vt, err := src.NextToken()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(src, vt)
		if err != nil {
			return nil, err
		}
		m[tok.String] = v
	}
}

func decodeArray(src TokenSource) (any, error) {
	arr := []any{}
	for {
		tok, err := src.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndArray {
			return arr, nil
		}
		v, err := decodeValue(src, tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}
