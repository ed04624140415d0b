package main

import (
	"os"

	"github.com/jhoicas/nfe-fiscal/internal/interfaces/cli"
)

func main() {
	os.Exit(cli.Execute())
}
