package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/phenrril/joyeria/internal/adapters/export"
	"github.com/phenrril/joyeria/internal/app"
	"github.com/phenrril/joyeria/internal/config"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	cmd := &cli.Command{
		Name:   "joyeria",
		Usage:  "jewelry back-office API",
		Action: func(ctx context.Context, c *cli.Command) error { return serve(ctx, cfg) },
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP API",
				Action: func(ctx context.Context, c *cli.Command) error {
					return serve(ctx, cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "Create tables and seed the default materials",
				Action: func(ctx context.Context, c *cli.Command) error {
					a, err := open(cfg)
					if err != nil {
						return err
					}
					if err := a.MigrateAndSeed(ctx); err != nil {
						return err
					}
					zlog.Info().Msg("migration complete")
					return nil
				},
			},
			{
				Name:  "reprice",
				Usage: "Recompute stored product prices from the current material prices",
				Action: func(ctx context.Context, c *cli.Command) error {
					a, err := open(cfg)
					if err != nil {
						return err
					}
					n, err := a.ProductUC.RepriceAll(ctx)
					if err != nil {
						return err
					}
					zlog.Info().Int("products", n).Msg("repriced")
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "Write every product variant to a spreadsheet",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Value: "csv", Usage: "csv or xlsx"},
					&cli.StringFlag{Name: "out", Value: "-", Usage: "output file, - for stdout"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runExport(ctx, cfg, c.String("format"), c.String("out"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		zlog.Fatal().Err(err).Msg("joyeria")
	}
}

func setupLogger(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func open(cfg config.Config) (*app.App, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return app.NewApp(db, cfg), nil
}

func serve(ctx context.Context, cfg config.Config) error {
	a, err := open(cfg)
	if err != nil {
		return err
	}
	if err := a.MigrateAndSeed(ctx); err != nil {
		return err
	}

	ln, err := listen(cfg)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           a.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Str("addr", ln.Addr().String()).Str("env", cfg.AppEnv).Msg("listening")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// listen binds PORT. Outside production a busy port falls back to the first
// free one in 8081-8090.
func listen(cfg config.Config) (net.Listener, error) {
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err == nil || cfg.IsProduction() {
		return ln, err
	}
	for p := 8081; p <= 8090; p++ {
		if alt, altErr := net.Listen("tcp", fmt.Sprintf(":%d", p)); altErr == nil {
			zlog.Warn().Err(err).Int("port", p).Msg("port busy, using fallback")
			return alt, nil
		}
	}
	return nil, err
}

func runExport(ctx context.Context, cfg config.Config, format, out string) error {
	write := export.WriteCSV
	switch format {
	case "csv":
	case "xlsx":
		write = export.WriteXLSX
	default:
		return fmt.Errorf("unknown format %q, want csv or xlsx", format)
	}

	a, err := open(cfg)
	if err != nil {
		return err
	}
	products, err := a.ProductUC.All(ctx)
	if err != nil {
		return err
	}
	book, err := a.ProductUC.PriceBook(ctx)
	if err != nil {
		return err
	}

	err = writeOutput(out, func(w io.Writer) error {
		return write(w, products, book)
	})
	if err != nil {
		return err
	}
	zlog.Info().Int("products", len(products)).Str("format", format).Str("out", out).Msg("export complete")
	return nil
}

var createFile = func(name string) (io.WriteCloser, error) { return os.Create(name) }

// writeOutput runs fn against stdout for "-" or against the named file. A
// failed close is returned since the file may not have been flushed.
func writeOutput(out string, fn func(io.Writer) error) (err error) {
	if out == "-" {
		return fn(os.Stdout)
	}
	f, err := createFile(out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", out, cerr)
		}
	}()
	return fn(f)
}
