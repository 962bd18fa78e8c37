package main

import (
	"fmt"
	"os"
)

func main() {
	code, err := Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if code == 0 {
			code = 1
		}
	}
	os.Exit(code)
}
