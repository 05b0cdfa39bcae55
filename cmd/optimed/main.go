package main

import (
	"os"

	"github.com/qrv0/optimed/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}
}
