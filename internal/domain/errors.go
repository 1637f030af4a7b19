// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates the caller supplied malformed input.
var ErrValidation = errors.New("validation failed")
