package wrangle

import (
	"errors"
	"fmt"
	"strings"
)

// SourceNotFoundError reports that the given root does not look like any
// source layout the generator understands.
type SourceNotFoundError struct {
	Root     string
	Expected []string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("no instruction tables found under %s (expected %s)", e.Root, strings.Join(e.Expected, " or "))
}

// MalformedTableError reports a row or table that could not be turned into
// instruction specs.
type MalformedTableError struct {
	Loc    Location
	Row    string
	Field  string
	Reason string
}

func (e *MalformedTableError) Error() string {
	var b strings.Builder
	b.WriteString(e.Loc.String())
	b.WriteString(": malformed table")
	if e.Row != "" {
		fmt.Fprintf(&b, " row %q", e.Row)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func malformed(loc Location, row, field, format string, args ...interface{}) *MalformedTableError {
	return &MalformedTableError{
		Loc:    loc,
		Row:    row,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// EncodingRef names one side of a conflict.
type EncodingRef struct {
	Mnemonic string
	Standard Standard
	Source   Location
}

func (r EncodingRef) String() string {
	return fmt.Sprintf("%s (%s) at %s", r.Mnemonic, r.Standard, r.Source)
}

// ConflictError reports two instructions whose encodings cannot be told
// apart and for which the source declares no precedence.
type ConflictError struct {
	Width        Width
	Mask, Value  bits32
	First, Other EncodingRef
	Reason       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("encoding conflict (mask %s, match %s): %s and %s %s",
		e.Mask.Hex(e.Width), e.Value.Hex(e.Width), e.First, e.Other, e.Reason)
}

// DuplicateConstantError reports one symbolic name bound to two values.
type DuplicateConstantError struct {
	Name     string
	Old, New uint32
}

func (e *DuplicateConstantError) Error() string {
	return fmt.Sprintf("constant %s defined as both %#x and %#x", e.Name, e.Old, e.New)
}

// WriteError reports a failure to persist an output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %s", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ErrorList collects every problem found in one phase so that a single run
// reports all of them.
type ErrorList []error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(l))
	for _, err := range l {
		b.WriteString("\n\t")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (l ErrorList) Unwrap() []error {
	return l
}

// Err returns nil for an empty list, the lone error for a list of one, and
// the list itself otherwise.
func (l ErrorList) Err() error {
	switch len(l) {
	case 0:
		return nil
	case 1:
		return l[0]
	}
	return l
}

// IsMalformed reports whether every error in err is a MalformedTableError.
func IsMalformed(err error) bool {
	var list ErrorList
	if errors.As(err, &list) {
		for _, e := range list {
			if !IsMalformed(e) {
				return false
			}
		}
		return len(list) > 0
	}
	var m *MalformedTableError
	return errors.As(err, &m)
}
