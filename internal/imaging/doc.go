// Package imaging holds the pixel buffer and the effect kernels.
//
// Every kernel is a pure transform: it reads its input buffers and returns
// a new buffer, so the caller's buffers are never modified. Kernels only
// fail on a malformed buffer (no rows, no columns, ragged rows). That is a
// programming defect and is raised as a *ShapeError panic, which Executor
// recovers and returns as an ordinary error.
//
// Numeric contract: blur, contour and multiply use integer floor division;
// grayscale rounds half up.
package imaging
