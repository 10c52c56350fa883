package main

import (
	"log"

	"github.com/zintix-labs/resamplab/sdk/perf"
)

// makefile runner
func main() {
	bindVar()
	mode, err := perf.ParseMode(cfg.pprofmode)
	if err != nil {
		log.Fatal(err)
	}
	if err := perf.Run(mode, cfg.pprofdir, executeSimulator); err != nil {
		log.Fatal(err)
	}
}
