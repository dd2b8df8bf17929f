package main

import (
	"os"

	"github.com/riskibarqy/propboard/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
