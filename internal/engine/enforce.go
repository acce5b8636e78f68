package engine

import (
	"errors"
	"strconv"
	"strings"
)

// ErrTrailingData is returned when input holds more than one top-level value.
var ErrTrailingData = errors.New("unexpected data after top-level value")

// DuplicateStrictness controls duplicate key handling.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// EnforceOptions controls runtime enforcement while tokens are consumed.
type EnforceOptions struct {
	OnDuplicate DuplicateStrictness
	MaxDepth    int
	// IssueSink receives findings that do not abort decoding (duplicate keys in warn mode).
	IssueSink func(SimpleIssue)
}

// SimpleIssue is a minimal issue representation used by the engine.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
}

// IssueError is a fatal enforcement finding.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.SimpleIssue.Message }

type enforceFrame struct {
	kind       containerKind
	keys       map[string]struct{}
	path       string
	nextIndex  int
	pendingKey string
}

// WrapWithEnforcement returns a TokenSource that enforces the duplicate key policy and the
// maximum nesting depth.
func WrapWithEnforcement(inner TokenSource, opt EnforceOptions) TokenSource {
	if opt.OnDuplicate == DupIgnore && opt.MaxDepth <= 0 {
		return inner
	}
	return &enforcingTokenSource{inner: inner, opt: opt}
}

type enforcingTokenSource struct {
	inner TokenSource
	opt   EnforceOptions
	stack []enforceFrame
}

func (e *enforcingTokenSource) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}
	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		path := e.childPath()
		f := enforceFrame{kind: kindArray, path: path}
		if tok.Kind == KindBeginObject {
			f.kind = kindObject
			f.keys = map[string]struct{}{}
		}
		e.stack = append(e.stack, f)
		if e.opt.MaxDepth > 0 && len(e.stack) > e.opt.MaxDepth {
			return Token{}, IssueError{SimpleIssue{Code: "parse_error", Path: NormalizePointer(path), Message: "max depth exceeded"}}
		}
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
	case KindKey:
		if n := len(e.stack); n > 0 {
			top := &e.stack[n-1]
			if _, dup := top.keys[tok.String]; dup && e.opt.OnDuplicate != DupIgnore {
				si := SimpleIssue{Code: "duplicate_key", Path: JoinPointer(top.path, tok.String), Message: "key '" + tok.String + "' duplicated"}
				if e.opt.OnDuplicate == DupError {
					return Token{}, IssueError{si}
				}
				if e.opt.IssueSink != nil {
					e.opt.IssueSink(si)
				}
			}
			top.keys[tok.String] = struct{}{}
			top.pendingKey = tok.String
		}
	default:
		e.childPath()
	}
	return tok, nil
}

// childPath returns the pointer of the value about to be read and advances array indices.
func (e *enforcingTokenSource) childPath() string {
	n := len(e.stack)
	if n == 0 {
		return ""
	}
	top := &e.stack[n-1]
	if top.kind == kindArray {
		p := JoinPointer(top.path, strconv.Itoa(top.nextIndex))
		top.nextIndex++
		return p
	}
	return JoinPointer(top.path, top.pendingKey)
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// JoinPointer appends an escaped reference token to a JSON Pointer.
func JoinPointer(base, token string) string {
	return base + "/" + pointerEscaper.Replace(token)
}

// NormalizePointer renders the root pointer as "/".
func NormalizePointer(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
