package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/shapedtime/animeschedule/internal/agent"
	"github.com/shapedtime/animeschedule/internal/api"
	"github.com/shapedtime/animeschedule/internal/metrics"
	"github.com/shapedtime/animeschedule/internal/predict"
	"github.com/shapedtime/animeschedule/internal/season"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "Override server.http_port"},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	port := rt.cfg.Server.HTTPPort
	if c.IsSet("port") {
		port = c.Int("port")
	}

	apiServer := api.NewServer(rt.svc, rt.cfg.Bingeable.DefaultWindowDays)
	apiServer.SetStatusCounter(rt.animes)

	if rt.cfg.Sync.Enabled {
		syncService := rt.newSeasonSync()
		syncService.Start()
		defer syncService.Stop()
		apiServer.SetSeasonSync(syncService)
	}

	var metricsServer *metrics.Server
	if rt.cfg.Server.MetricsPort > 0 {
		metricsServer = metrics.NewServer(rt.cfg.Server.MetricsPort, rt.registry)
		go metricsServer.Start()
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: apiServer.Handler(),
	}

	go func() {
		slog.Info("HTTP server starting", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	slog.Info("Shutdown complete")
	return nil
}

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Predict the completion date of one anime",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "id", Usage: "AniList media ID"},
			&cli.StringFlag{Name: "title", Usage: "Search AniList by title"},
		},
		Action: func(c *cli.Context) error {
			if !c.IsSet("id") && c.String("title") == "" {
				return cli.Exit("one of --id or --title is required", 2)
			}

			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			if c.IsSet("id") {
				entry, err := rt.svc.GetSchedule(c.Context, c.Int("id"))
				if err != nil {
					return err
				}
				return printJSON(entry)
			}

			entry, err := rt.svc.SearchLive(c.Context, c.String("title"))
			if err != nil {
				return err
			}
			return printJSON(entry)
		},
	}
}

var seasonFlags = []cli.Flag{
	&cli.StringFlag{Name: "season", Usage: "WINTER, SPRING, SUMMER or FALL (default: current)"},
	&cli.IntFlag{Name: "year", Usage: "Season year (default: current)"},
}

// seasonOf resolves the season flags, defaulting to the current season
// unless both are given.
func seasonOf(c *cli.Context, now time.Time) (season.Season, int, error) {
	if c.String("season") == "" || c.Int("year") == 0 {
		sn, year := season.Current(now)
		return sn, year, nil
	}
	sn, err := season.Parse(c.String("season"))
	if err != nil {
		return "", 0, cli.Exit(err.Error(), 2)
	}
	return sn, c.Int("year"), nil
}

func seasonCommand() *cli.Command {
	return &cli.Command{
		Name:  "season",
		Usage: "List a season's anime with completion predictions",
		Flags: seasonFlags,
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			sn, year, err := seasonOf(c, rt.svc.Today())
			if err != nil {
				return err
			}

			list, err := rt.svc.SeasonAnime(c.Context, sn, year)
			if err != nil {
				return err
			}
			return printJSON(api.SeasonalResponse{Season: season.Label(sn, year), Anime: list})
		},
	}
}

func bingeableCommand() *cli.Command {
	return &cli.Command{
		Name:  "bingeable",
		Usage: "List anime that will be complete by a date",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "by-date", Usage: "YYYY-MM-DD (default: today plus bingeable.default_window_days)"},
		}, seasonFlags...),
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			today := rt.svc.Today()
			sn, year, err := seasonOf(c, today)
			if err != nil {
				return err
			}

			byDate := today.AddDate(0, 0, rt.cfg.Bingeable.DefaultWindowDays)
			if raw := c.String("by-date"); raw != "" {
				if byDate, err = predict.ParseDate("by-date", raw); err != nil {
					return cli.Exit(err.Error(), 2)
				}
			}

			list, err := rt.svc.Bingeable(c.Context, sn, year, &byDate)
			if err != nil {
				return err
			}
			return printJSON(api.BingeableResponse{
				Season: season.Label(sn, year),
				ByDate: predict.FormatDate(byDate),
				Anime:  list,
			})
		},
	}
}

func weeklyCommand() *cli.Command {
	return &cli.Command{
		Name:  "weekly",
		Usage: "Show the stored airing schedule for a week",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "offset", Usage: "Weeks from the current week"},
		},
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			week, err := rt.svc.WeeklySchedule(c.Context, c.Int("offset"))
			if err != nil {
				return err
			}
			return printJSON(week)
		},
	}
}

func airingCommand() *cli.Command {
	return &cli.Command{
		Name:  "airing",
		Usage: "List stored episodes airing on one day",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "YYYY-MM-DD (default: today)"},
		},
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			date := rt.svc.Today()
			if raw := c.String("date"); raw != "" {
				if date, err = predict.ParseDate("date", raw); err != nil {
					return cli.Exit(err.Error(), 2)
				}
			}

			slots, err := rt.svc.EpisodesOn(c.Context, date)
			if err != nil {
				return err
			}
			return printJSON(slots)
		},
	}
}

func toolCommand() *cli.Command {
	return &cli.Command{
		Name:      "tool",
		Usage:     "Execute an assistant tool by name",
		ArgsUsage: "<name> [json-arguments]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "list", Usage: "Print the tool definitions"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("list") {
				return printJSON(agent.Definitions())
			}
			if c.NArg() < 1 {
				return cli.Exit("tool name is required", 2)
			}

			args := json.RawMessage("{}")
			if c.NArg() > 1 {
				args = json.RawMessage(c.Args().Get(1))
				if !json.Valid(args) {
					return cli.Exit("arguments must be valid JSON", 2)
				}
			}

			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			fmt.Println(agent.NewToolbox(rt.svc).Execute(c.Context, c.Args().First(), args))
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Fetch the current season from AniList into the database",
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			syncService := rt.newSeasonSync()
			if err := syncService.TriggerSync(c.Context); err != nil {
				return err
			}
			return printJSON(syncService.GetStatus())
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
