/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the pipeline matches exactly one of
// these with errors.Is.
var (
	ErrInvalidMetadataPath    = errors.New("invalid metadata path")
	ErrInvalidFieldSpec       = errors.New("invalid field spec")
	ErrObjectNotFound         = errors.New("object not found")
	ErrDialectDetectionFailed = errors.New("dialect detection failed")
	ErrMalformedRow           = errors.New("malformed row")
	ErrInvalidToken           = errors.New("invalid token")
)

const (
	// pipeline steps
	STEP_RESOLVE_KEYS     = "resolve_keys"
	STEP_FETCH_METADATA   = "fetch_metadata"
	STEP_PARSE_FIELD_SPEC = "parse_field_spec"
	STEP_FETCH_RAW        = "fetch_raw"
	STEP_DETECT_DIALECT   = "detect_dialect"
	STEP_TRANSFORM        = "transform"
	STEP_STORE_OUTPUT     = "store_output"
)

type InvalidMetadataPathError struct {
	key    string
	suffix string
}

func (e *InvalidMetadataPathError) Error() string {
	return fmt.Sprintf("%s: %q does not end with %q", ErrInvalidMetadataPath, e.key, e.suffix)
}

func (e *InvalidMetadataPathError) Unwrap() error {
	return ErrInvalidMetadataPath
}

func NewInvalidMetadataPathError(key, suffix string) *InvalidMetadataPathError {
	return &InvalidMetadataPathError{key: key, suffix: suffix}
}

// InvalidFieldSpecError reports where in the metadata payload parsing stopped.
// Offset is a byte offset into the payload after the BOM and surrounding
// whitespace have been removed.
type InvalidFieldSpecError struct {
	Offset int
	Reason string
}

func (e *InvalidFieldSpecError) Error() string {
	return fmt.Sprintf("%s: offset %d: %s", ErrInvalidFieldSpec, e.Offset, e.Reason)
}

func (e *InvalidFieldSpecError) Unwrap() error {
	return ErrInvalidFieldSpec
}

func NewInvalidFieldSpecError(offset int, format string, args ...interface{}) *InvalidFieldSpecError {
	return &InvalidFieldSpecError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

type ObjectNotFoundError struct {
	Container string
	Key       string
	err       error
}

func (e *ObjectNotFoundError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %s/%s", ErrObjectNotFound, e.Container, e.Key)
	}
	return fmt.Sprintf("%s: %s/%s: %s", ErrObjectNotFound, e.Container, e.Key, e.err.Error())
}

func (e *ObjectNotFoundError) Is(target error) bool {
	return target == ErrObjectNotFound
}

func (e *ObjectNotFoundError) Unwrap() error {
	return e.err
}

func NewObjectNotFoundError(container, key string, err error) *ObjectNotFoundError {
	return &ObjectNotFoundError{Container: container, Key: key, err: err}
}

type DialectDetectionError struct {
	reason string
}

func (e *DialectDetectionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDialectDetectionFailed, e.reason)
}

func (e *DialectDetectionError) Unwrap() error {
	return ErrDialectDetectionFailed
}

func NewDialectDetectionError(format string, args ...interface{}) *DialectDetectionError {
	return &DialectDetectionError{reason: fmt.Sprintf(format, args...)}
}

// MalformedRowError is returned when a data record does not have as many
// fields as the header. Record is 1-based and counts the header as record 1.
type MalformedRowError struct {
	Record   int64
	Expected int
	Actual   int
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("%s: record %d has %d fields, header has %d", ErrMalformedRow, e.Record, e.Actual, e.Expected)
}

func (e *MalformedRowError) Unwrap() error {
	return ErrMalformedRow
}

func NewMalformedRowError(record int64, expected, actual int) *MalformedRowError {
	return &MalformedRowError{Record: record, Expected: expected, Actual: actual}
}

type InvalidTokenError struct {
	Record int64
	Column string
	err    error
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("%s: record %d column %q: %s", ErrInvalidToken, e.Record, e.Column, e.err.Error())
}

func (e *InvalidTokenError) Is(target error) bool {
	return target == ErrInvalidToken
}

func (e *InvalidTokenError) Unwrap() error {
	return e.err
}

func NewInvalidTokenError(record int64, column string, err error) *InvalidTokenError {
	return &InvalidTokenError{Record: record, Column: column, err: err}
}

// PipelineError wraps the error that aborted one invocation of the pipeline
// together with the step that failed and the steps completed before it.
type PipelineError struct {
	invocationID string
	failedStep   string
	steps        []string
	err          error
}

func (e *PipelineError) Error() string {
	if len(e.steps) > 0 {
		return fmt.Sprintf("invocation %s: failed at step '%s', after steps - (%s): %s",
			e.invocationID, e.failedStep, strings.Join(e.steps, ", "), e.err.Error())
	}
	return fmt.Sprintf("invocation %s: failed at step '%s': %s",
		e.invocationID, e.failedStep, e.err.Error())
}

func (e *PipelineError) InvocationID() string {
	return e.invocationID
}

func (e *PipelineError) FailedStep() string {
	return e.failedStep
}

func (e *PipelineError) Steps() []string {
	return e.steps
}

func (e *PipelineError) Unwrap() error {
	return e.err
}

func NewPipelineError(invocationID string, steps []string, failedStep string, err error) *PipelineError {
	return &PipelineError{
		invocationID: invocationID,
		failedStep:   failedStep,
		steps:        append([]string(nil), steps...),
		err:          err,
	}
}

// IsUserError reports whether err was caused by the inputs of the invocation
// rather than by the environment (storage, network, local disk).
func IsUserError(err error) bool {
	for _, kind := range []error{ErrInvalidMetadataPath, ErrInvalidFieldSpec, ErrDialectDetectionFailed, ErrMalformedRow, ErrInvalidToken} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
