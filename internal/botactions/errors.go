package botactions

import "errors"

var (
	ErrAlreadyRefunded  = errors.New("already_refunded")
	ErrRefundInProgress = errors.New("refund_in_progress")
)
