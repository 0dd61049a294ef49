// Package detection runs the periodic comparison between a reference
// signature and the center of a live frame.
//
// A detection cycle does not search the frame for the object. It looks only
// at the focus region: a rectangle the size of the reference, centered in
// the frame. The user aims the camera; the cycle reports how well the color
// signature under the crosshair matches the reference.
//
// # Scheduling
//
// Cycle holds no timer. An external driver calls Tick once per rendered
// frame and Tick decides whether enough time has passed since the last
// comparison (Interval, one second by default). Between comparisons the
// previous Result is handed back unchanged so guidance can be redrawn every
// frame without rescanning pixels.
//
// # Outcomes
//
// A tick produces one of:
//   - no result: there is no reference (not an error)
//   - a retained result: the interval has not elapsed
//   - a fresh Result with Matched=false: the signatures differ by more than
//     the threshold; Confidence is not computed
//   - a fresh Result with Matched=true and a Confidence/Tier
//   - ErrOutOfBounds: the focus region does not fit in the frame and the
//     tick is rejected
//
// # Coordinate System
//
// Regions use buffer coordinates with the origin at the top-left corner.
// The focus region's top-left corner is floor(W/2 - w/2), floor(H/2 - h/2)
// for a W x H frame and a w x h reference.
package detection
