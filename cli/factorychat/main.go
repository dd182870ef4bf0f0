package main

import (
	"os"

	factorychatcmder "github.com/papercomputeco/factorychat/cmd/factorychat"
)

func main() {
	cmd := factorychatcmder.NewFactorychatCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
