// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obs

import "fmt"

// ValidationError reports a sample that does not conform to its space
// descriptor: wrong shape, wrong dtype, out-of-bounds values, or an
// out-of-range category.  It is never coerced away -- the boundary that
// detects it must surface it immediately.
type ValidationError struct {
	Key string // observation key, "" if not key-specific
	Msg string
}

func (ve *ValidationError) Error() string {
	if ve.Key == "" {
		return "obs: invalid sample: " + ve.Msg
	}
	return fmt.Sprintf("obs: invalid sample for key %q: %s", ve.Key, ve.Msg)
}

// ValidationErrorf formats a new ValidationError for given key.
func ValidationErrorf(key, format string, args ...any) *ValidationError {
	return &ValidationError{Key: key, Msg: fmt.Sprintf(format, args...)}
}

// ConfigurationError reports a structurally bad configuration: a malformed
// space descriptor, an unresolvable key -> extractor mapping, or a channel
// order that contradicts the declared shape.  These are construction-time
// failures so that misconfiguration fails before any training time is spent.
type ConfigurationError struct {
	Key string
	Msg string
}

func (ce *ConfigurationError) Error() string {
	if ce.Key == "" {
		return "obs: configuration: " + ce.Msg
	}
	return fmt.Sprintf("obs: configuration for key %q: %s", ce.Key, ce.Msg)
}

// ConfigErrorf formats a new ConfigurationError for given key.
func ConfigErrorf(key, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Key: key, Msg: fmt.Sprintf(format, args...)}
}

// ShapeMismatchError reports a sample whose dimensions contradict the space
// an extractor or wrapper was constructed for -- e.g. a stacked channel count
// that does not match what the downstream encoder expects.  It indicates a
// layout / channel-order mismatch and is fatal, not retried.
type ShapeMismatchError struct {
	Key  string
	Want []int
	Got  []int
}

func (se *ShapeMismatchError) Error() string {
	return fmt.Sprintf("obs: shape mismatch for key %q: want %v got %v", se.Key, se.Want, se.Got)
}
