package sampler

import "fmt"

// SamplerError wraps a sampler failure, attaching the kind of sampler it
// came from for diagnosis. Engine does not build it: Stop and Results
// return the sample function's error unwrapped.
type SamplerError struct {
	Kind string
	Err  error
}

func (e *SamplerError) Error() string {
	return fmt.Sprintf("sampler %q failed: %v", e.Kind, e.Err)
}

func (e *SamplerError) Unwrap() error { return e.Err }
