// Package ndimage is the host implementation of the N-dimensional image
// primitives used by calc: connected-component labeling, binary morphology,
// the exact Euclidean distance transform and label-restricted reductions.
//
// Arrays are dense and row-major. Structuring elements are boolean arrays of
// the same rank as the input with every axis of length 3; the centre cell is
// the origin.
package ndimage
