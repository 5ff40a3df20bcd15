package main

import (
	"errors"

	"github.com/iota-uz/orgvalidity/modules/org/services"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitDBWrite    = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.Code == services.CodeNotFound {
			return exitDB
		}
		return exitValidation
	}
	var storeErr *services.StoreError
	if errors.As(err, &storeErr) {
		if storeErr.Op == "update" {
			return exitDBWrite
		}
		return exitDB
	}
	return 1
}
