package pipeline

import "fmt"

// DecodeError reports an unreadable or unsupported input. The file or page
// is skipped; the batch continues.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Path, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// OrientationError reports a failed orientation detection. The policy is
// angle 0: the page proceeds uncorrected.
type OrientationError struct {
	Err error
}

func (e *OrientationError) Error() string { return fmt.Sprintf("orientation detection: %v", e.Err) }
func (e *OrientationError) Unwrap() error { return e.Err }

// RotationError reports a correction that could not be applied. The policy
// is passthrough: the original raster continues down the pipeline.
type RotationError struct {
	Angle int
	Err   error
}

func (e *RotationError) Error() string { return fmt.Sprintf("rotate by %d: %v", e.Angle, e.Err) }
func (e *RotationError) Unwrap() error { return e.Err }

// EnhanceError reports a failed enhancement or binarization. The page is
// marked failed and produces no output; the batch continues.
type EnhanceError struct {
	Err error
}

func (e *EnhanceError) Error() string { return fmt.Sprintf("enhance: %v", e.Err) }
func (e *EnhanceError) Unwrap() error { return e.Err }
