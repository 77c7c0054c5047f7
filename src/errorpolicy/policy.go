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

package errorpolicy

import (
	goerrors "github.com/go-errors/errors"
)

/*
ErrorPolicy defines what the transformer does with a data row whose field
count does not match the header.
*/
type ErrorPolicy int

const (
	AbortErrorPolicy      ErrorPolicy = iota // Fail the invocation, nothing is stored
	SkipAndLogErrorPolicy                    // Log the row number, drop the row and continue
)

const (
	AbortErrorPolicyName      = "Abort"
	SkipAndLogErrorPolicyName = "SkipAndLog"
)

var errorPolicyNames = map[ErrorPolicy]string{
	AbortErrorPolicy:      AbortErrorPolicyName,
	SkipAndLogErrorPolicy: SkipAndLogErrorPolicyName,
}

func (e ErrorPolicy) String() string {
	return errorPolicyNames[e]
}

func NewErrorPolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "", AbortErrorPolicyName:
		return AbortErrorPolicy, nil
	case SkipAndLogErrorPolicyName:
		return SkipAndLogErrorPolicy, nil
	default:
		return 0, goerrors.Errorf("invalid error policy: %s. Valid policies = [%s %s]", s, AbortErrorPolicyName, SkipAndLogErrorPolicyName)
	}
}
