package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/gamevault/internal/broker/app"
)

func main() {
	showVersion := flag.Bool("version", false, "print the build version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(app.BuildVersion)
		return
	}

	broker, err := app.New(app.LoadConfig())
	if err != nil {
		slog.Error("session broker failed to start", "error", err)
		os.Exit(1)
	}

	if err := broker.Run(); err != nil {
		slog.Error("session broker stopped with an error", "error", err)
		os.Exit(1)
	}
}
