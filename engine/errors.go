// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	ErrAlreadyInitialized = errors.New("engine already initialized")
	ErrOpenDevice         = errors.New("cannot open audio device")
)
