// Package render binds a force layout to drawable primitives.
//
// A Binder keeps one Circle per graph node and one Line per edge, in the
// order the graph produced them. Sync adds and removes primitives when the
// graph changes; Paint copies body positions into the primitives and draws
// the resulting Frame onto the mounted Surface. Painting without a surface
// is a silent no-op, so a layout can keep running while nothing is visible.
//
// Surfaces shipped here:
//
//   - Recorder keeps frames in memory
//   - FileSurface rewrites a file on every frame through an Encoder
//   - StreamSurface appends one encoded frame per line to a writer
//
// EncodeSVG and EncodeJSON are the Encoders.
package render
