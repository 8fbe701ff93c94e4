package main

import (
	"notedup/cmd/cmd"
	"notedup/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
