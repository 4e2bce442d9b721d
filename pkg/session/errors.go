package session

import "errors"

// ErrConfig marks a caller configuration mistake, such as requesting a form
// without a forms capability.
var ErrConfig = errors.New("hatch: configuration error")
