package interfaces

import "github.com/m-mizutani/goerr/v2"

// ErrRecordNotFound is returned by repositories when a lookup misses.
var ErrRecordNotFound = goerr.New("record not found")
