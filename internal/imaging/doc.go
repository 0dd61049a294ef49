// Package imaging loads frames from disk and renders tracker output back
// into images.
//
// It sits between files on disk and the signature package: frames are
// decoded into signature.PixelBuffer values, and guidance overlays and
// target previews are encoded as base64 PNG for MCP clients.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner.
// Regions are given as (x, y, width, height).
//
// # Frame Sources
//
// FrameCache keeps decoded still images (reference photos) keyed by path.
// Live frames change on every tick, so they are decoded with DecodeFrame and
// never cached. DirSource replays a directory of frame files in name order
// as a stand-in for a camera.
//
// # Thread Safety
//
// FrameCache is safe for concurrent use. DirSource is not; it is meant to be
// drained by a single driver goroutine.
package imaging
