package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorValidation marks user-correctable input problems (bad amount, bad date).
// Nothing is written when a wrapped validation error is returned.
var ErrorValidation = errors.New("validation error")

// ErrorIntegrity marks key tuples that reference entities outside the caller's
// scope or that do not exist (e.g. a revenue source of another MDA).
var ErrorIntegrity = errors.New("integrity error")
