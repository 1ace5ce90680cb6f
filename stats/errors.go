// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stats

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrDegenerateInput  = errors.New("degenerate input")
	ErrEmptyTail        = errors.New("empty tail")
	ErrConfiguration    = errors.New("invalid configuration")
)

// error kinds used when a metric error is serialized
const (
	KindInsufficientData = "insufficient_data"
	KindDegenerateInput  = "degenerate_input"
	KindEmptyTail        = "empty_tail"
	KindConfiguration    = "configuration"
	KindUnknown          = "unknown"
)

var kinds = map[string]error{
	KindInsufficientData: ErrInsufficientData,
	KindDegenerateInput:  ErrDegenerateInput,
	KindEmptyTail:        ErrEmptyTail,
	KindConfiguration:    ErrConfiguration,
}

// KindOf maps err onto one of the sentinel error kinds
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrDegenerateInput):
		return KindDegenerateInput
	case errors.Is(err, ErrEmptyTail):
		return KindEmptyTail
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// RestoreError rebuilds an error from its serialized kind and message so that
// errors.Is keeps working after a metric has been round-tripped through JSON.
func RestoreError(kind, msg string) error {
	if sentinel, ok := kinds[kind]; ok {
		return &kindError{msg: msg, kind: sentinel}
	}
	return errors.New(msg)
}

// InsufficientData reports that statistic needs more observations than it was given
func InsufficientData(statistic string, need, have int) error {
	return fmt.Errorf("%s requires at least %d observations, have %d: %w", statistic, need, have, ErrInsufficientData)
}

// Degenerate reports a zero divisor in statistic
func Degenerate(statistic, reason string) error {
	return fmt.Errorf("%s: %s: %w", statistic, reason, ErrDegenerateInput)
}
