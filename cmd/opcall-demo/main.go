// Command opcall-demo runs a small note-keeping service through the
// dispatcher, either over HTTP or as a one-shot operation listing.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/alecthomas/kong"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/opcall/opcall"
	"github.com/opcall/opcall/httpbind"
	"github.com/opcall/opcall/middleware"
)

type CLI struct {
	Serve ServeCmd `cmd:"" default:"1" help:"Serve the demo service over HTTP."`
	Ops   OpsCmd   `cmd:"" help:"List the operations the demo service exposes."`
}

// Config is read from the environment (prefix OPCALL), optionally seeded
// from a .env file.
type Config struct {
	Addr string `envconfig:"ADDR" default:":8080"`
}

func loadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("opcall", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newDispatcher(logger *slog.Logger) (*opcall.Dispatcher, error) {
	notes := newNoteStore()
	d, err := opcall.New(func() any { return &NoteService{store: notes} })
	if err != nil {
		return nil, err
	}
	return d.WithLogger(logger).WithInterceptor(middleware.Logging(logger)), nil
}

type ServeCmd struct {
	Addr string `help:"Listen address (overrides OPCALL_ADDR)." short:"a"`
}

func (c *ServeCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	d, err := newDispatcher(logger)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Mount("/ops", httpbind.NewHandler(d).WithLogger(logger).Router())

	logger.Info("listening", slog.String("addr", cfg.Addr))
	return http.ListenAndServe(cfg.Addr, r)
}

type OpsCmd struct{}

func (c *OpsCmd) Run() error {
	d, err := newDispatcher(slog.Default())
	if err != nil {
		return err
	}

	for _, op := range d.Operations() {
		fmt.Printf("%s (%s)\n", op.Name, op.Method)
		for _, p := range op.Params {
			flags := ""
			if p.Header {
				flags += " header"
			}
			if p.Optional {
				flags += " optional"
			}
			fmt.Printf("  %s %s%s\n", p.Name, p.Type, flags)
		}
	}
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("opcall-demo"),
		kong.Description("Demo server for the opcall operation dispatcher."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
