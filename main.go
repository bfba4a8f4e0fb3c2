package main

import (
	"github.com/ktv-audio/engine/cmd"
	"github.com/ktv-audio/engine/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
