package main

import (
	"os"

	"github.com/wonny/kantei/cmd/kantei/commands"
)

// main is the entry point for the kantei CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/kantei [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
