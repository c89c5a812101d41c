package main

import (
	"fmt"
	"os"

	"ruleengine/cmd/ruleenginectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
