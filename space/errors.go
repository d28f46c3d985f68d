package space

import "errors"

// ErrInvalidCellEdge is returned for a cell edge length that is not a finite
// positive number. It is a startup configuration error.
var ErrInvalidCellEdge = errors.New("space: cell edge length must be finite and > 0")
