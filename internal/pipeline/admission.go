package pipeline

import (
	"context"

	"github.com/tanq16/tgytdl/internal/extractor"
)

type Verdict int

const (
	Accepted Verdict = iota
	RejectedSizeUnknown
	RejectedTooLarge
	Failed
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case RejectedSizeUnknown:
		return "rejected: size unknown"
	case RejectedTooLarge:
		return "rejected: too large"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Admission is the outcome of probing a URL and checking it against the
// size ceiling. Probe is set for every verdict except Failed; Err is set
// for every verdict except Accepted.
type Admission struct {
	Verdict Verdict
	Probe   *extractor.ProbeResult
	Err     error
}

// Admit probes url without transferring bytes and decides whether the
// stream may be downloaded. A stream of unknown size is never admitted.
func Admit(ctx context.Context, ext extractor.Extractor, url string, sel extractor.Selector, maxSize int64) Admission {
	probe, err := ext.Probe(ctx, url, sel)
	if err != nil {
		return Admission{Verdict: Failed, Err: &TransferError{Stage: StageProbe, Err: err}}
	}
	if !probe.SizeKnown() {
		return Admission{Verdict: RejectedSizeUnknown, Probe: probe, Err: ErrSizeUnknown}
	}
	if *probe.Size > maxSize {
		return Admission{Verdict: RejectedTooLarge, Probe: probe, Err: ErrTooLarge}
	}
	return Admission{Verdict: Accepted, Probe: probe}
}
