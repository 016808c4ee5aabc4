// Command kirokukai-csv normalizes result CSV files offline.
package main

import (
	"os"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
)

func main() {
	if err := logger.Init(logger.WithOutput(os.Stderr), logger.WithLevel("warn")); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
