package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "animeschedule",
		Usage: "Predict when airing anime finish and find what is ready to binge",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "Path to configuration file",
				EnvVars: []string{"ANIMESCHEDULE_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			predictCommand(),
			seasonCommand(),
			bingeableCommand(),
			weeklyCommand(),
			airingCommand(),
			toolCommand(),
			syncCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("animeschedule failed", "error", err)
		os.Exit(1)
	}
}
