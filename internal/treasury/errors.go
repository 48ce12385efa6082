package treasury

import "errors"

var ErrCapExceeded = errors.New("cap_exceeded")
