package gep

import "errors"

// ErrNoData indicates no byte is available on a non-blocking read.
var ErrNoData = errors.New("no data available")

// ErrStreamClosed indicates the StreamReader was closed.
var ErrStreamClosed = errors.New("stream closed")
