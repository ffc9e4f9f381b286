package main

import (
	"os"

	"github.com/veilrep/repledger/ledgerservice"
)

func main() {
	if err := ledgerservice.Run(); err != nil {
		os.Exit(1)
	}
}
