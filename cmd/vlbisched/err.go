package main

import (
	"fmt"
	"os"
)

// Exit codes use a small reserved band for usage/configuration
// failures, everything else generic.
const (
	EINVAL = 22

	GenericErrCode = 5000 + iota
	UsageErrCode
	CatalogErrCode
)

// Error pairs a cause with a process exit code for CLI-boundary
// failures.
type Error struct {
	Cause error
	Code  int
}

func (e *Error) Error() string {
	return e.Cause.Error()
}

// Exit prints err (if any) and terminates with its code, or with
// GenericErrCode for an error that never went through badUsage/genericErr.
func Exit(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	if e, ok := err.(*Error); ok {
		os.Exit(e.Code)
	}
	os.Exit(GenericErrCode)
}

func badUsage(msg string) error {
	return &Error{Cause: fmt.Errorf(msg), Code: EINVAL}
}

func genericErr(err error) error {
	return &Error{Cause: err, Code: GenericErrCode}
}

func catalogErr(err error) error {
	return &Error{Cause: err, Code: CatalogErrCode}
}
