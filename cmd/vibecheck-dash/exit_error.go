package main

import "strconv"

// exitError lets a subcommand pick the process exit status. silent suppresses
// the fatal-path log line for errors already reported closer to their source.
type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	if e == nil {
		return ""
	}
	if e.err != nil {
		return e.err.Error()
	}
	return "exit " + strconv.Itoa(e.code)
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}
