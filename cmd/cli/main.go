package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ercot-forecast/internal/catalog"
	"ercot-forecast/internal/config"
	"ercot-forecast/internal/data"
	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/logging"
	"ercot-forecast/internal/market"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds what every command needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	svc    *market.Service
	cache  *data.ResponseCache

	outPath string
	asJSON  bool
	maxRows int
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ercot",
		Short:         "Fetch, normalize and forecast ERCOT market data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.cache != nil {
				a.cache.Close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.outPath, "out", "o", "", "write the resulting table to a .csv or .xlsx file")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print results as JSON")
	root.PersistentFlags().IntVar(&a.maxRows, "rows", 50, "maximum table rows to print (0 = all)")

	root.AddCommand(
		newFetchCmd(a),
		newEndpointsCmd(a),
		newInfoCmd(a),
		newNormalizeCmd(a),
		newVintageCmd(a),
		newNetLoadCmd(a),
		newSplitsCmd(a),
		newDayAheadCmd(a),
		newCVCmd(a),
		newRankCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	cat, err := catalog.Default().WithBaseURL(cfg.APIBaseURL)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.svc = market.New(cat, a.fetcher(),
		market.WithLogger(logger),
		market.WithDiagnostics(diag.LogSink{Logger: logger}),
		market.WithPageSize(cfg.PageSize),
	)
	return nil
}

// fetcher returns the ERCOT client, or a stand-in reporting the missing
// credentials so that offline commands still work without them.
func (a *app) fetcher() market.Fetcher {
	if err := a.cfg.RequireCredentials(); err != nil {
		return missingCredentials{err: err}
	}
	httpClient := &http.Client{Timeout: a.cfg.RequestTimeout}
	auth := data.NewAuthenticator(data.AuthConfig{
		URL:      a.cfg.AuthURL,
		ClientID: a.cfg.ClientID,
		Scope:    a.cfg.Scope,
		Username: a.cfg.Username,
		Password: a.cfg.Password,
		Lifetime: a.cfg.TokenLifetime,
	}, httpClient, a.logger)
	if a.cfg.CacheActive() {
		a.cache = data.NewResponseCache(a.cfg.CacheTTL)
	}
	return data.NewClient(auth, data.ClientConfig{
		SubscriptionKey:   a.cfg.SubscriptionKey,
		Timeout:           a.cfg.RequestTimeout,
		RequestsPerMinute: a.cfg.RequestsPerMinute,
		MaxPages:          a.cfg.MaxPages,
		Cache:             a.cache,
		Logger:            a.logger,
		HTTP:              httpClient,
	})
}

type missingCredentials struct{ err error }

func (m missingCredentials) Get(context.Context, string, string, map[string]string) (*data.Response, error) {
	return nil, m.err
}
