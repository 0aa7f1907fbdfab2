package util

import (
	"fmt"
	"os"
	"runtime/debug"
)

// Can be set by tests if they want to catch asserts
var AssertsPanic bool = false

func Assert(cond bool, o ...interface{}) {
	if !cond {
		if AssertsPanic {
			panic(fmt.Sprint(o...))
		} else {
			debug.PrintStack()
			fmt.Fprintln(os.Stderr, o...)
			os.Exit(1)
		}
	}
}

func Assertf(cond bool, fmtstr string, o ...interface{}) {
	Assert(cond, fmt.Sprintf(fmtstr, o...))
}
