package main

import (
	"os"

	"github.com/sagerock/google-drive-to-qdrant/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
