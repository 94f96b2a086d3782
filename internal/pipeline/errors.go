package pipeline

import "errors"

var (
	// ErrNoURL is a user input error: /download without a usable link.
	ErrNoURL       = errors.New("no video url given")
	ErrSizeUnknown = errors.New("video size unknown")
	ErrTooLarge    = errors.New("video exceeds size limit")
)

type Stage string

const (
	StageProbe    Stage = "probe"
	StageAllocate Stage = "allocate"
	StageTransfer Stage = "transfer"
)

// TransferError covers everything between the probe and a complete scratch
// file: extraction service failures, network failures and disk writes.
type TransferError struct {
	Stage Stage
	Err   error
}

func (e *TransferError) Error() string {
	return e.Err.Error()
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// DeliveryError is a failure sending replies or the attachment after the
// transfer succeeded.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
