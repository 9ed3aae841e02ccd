package common

import "fmt"

func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}

func Assert(cond bool, msg string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(msg, args...))
	}
}
