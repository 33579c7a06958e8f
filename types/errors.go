package types

import (
	"github.com/cockroachdb/errors"
)

// Error kinds. Every error returned by a sort is marked with exactly one of
// these, test with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrParse         = errors.New("parse error")
	ErrIO            = errors.New("io error")
	ErrInvariant     = errors.New("invariant violation")
)

func ConfigErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

func ParseErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrParse)
}

// WrapIO marks err as an I/O failure. A nil err stays nil.
func WrapIO(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrIO)
}

// InvariantErrorf reports an internal bug. It never gets recovered locally.
func InvariantErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrInvariant)
}
