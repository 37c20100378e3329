// Command shopper is a terminal storefront client. It keeps guest activity in
// a local session store and hands it to the account on login.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/apiclient"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/guest"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/logger"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/shopper"
)

type rootOptions struct {
	configPath string
	apiURL     string
	dataDir    string
	timeout    time.Duration
	verbose    bool
}

// app is built once per invocation by the root PersistentPreRunE.
type app struct {
	cfg     cliConfig
	api     *apiclient.Client
	shopper *shopper.Shopper
	local   *guest.SQLiteBackend
	out     io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "shopper",
		Short:         "Browse the storefront, keep a cart and chat with the shopping assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", defaultConfigPath(), "path to the YAML config file")
	flags.StringVar(&opts.apiURL, "api-url", "", "storefront API base URL (overrides api_url)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory for local session data (overrides data_dir)")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newActivityCmd(a),
		newCartCmd(a),
		newViewCmd(a),
		newSearchCmd(a),
		newProductsCmd(a),
		newChatCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api-url") {
		cfg.APIURL = opts.apiURL
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = opts.dataDir
	}
	cfg.applyDefaults()
	a.cfg = cfg

	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	logg := logger.New(logger.Options{ServiceName: "shopper", Level: level, Output: os.Stderr, Format: "console"})

	api, err := apiclient.New(cfg.APIURL, apiclient.WithTimeout(opts.timeout))
	if err != nil {
		return err
	}
	backend, err := guest.NewSQLiteBackend(cfg.DataDir)
	if err != nil {
		return err
	}
	s, err := shopper.New(shopper.Params{
		API:    api,
		Store:  guest.NewStore(backend),
		Logger: logg,
	})
	if err != nil {
		_ = backend.Close()
		return err
	}
	a.local = backend
	a.api = api
	a.shopper = s
	return nil
}

func (a *app) close() error {
	if a.local == nil {
		return nil
	}
	err := a.local.Close()
	a.local = nil
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describeError(err))
		stop()
		os.Exit(1)
	}
}
