package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/ellemouton/lnscan"
	"github.com/ellemouton/lnscan/lnurl"
	"github.com/lightninglabs/lndclient"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "lnscan"
	app.Usage = "Decode bitcoin and lightning payment strings"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to a yaml file with default flag values",
		},
		&cli.StringFlag{
			Name: "network",
			Usage: "only accept results on this network " +
				"(bitcoin, testnet, regtest, signet)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Value: 30 * time.Second,
			Usage: "timeout of lnurl requests",
		},
		&cli.StringFlag{
			Name:  "torsocks",
			Usage: "host:port of a tor socks proxy to route lnurl requests through",
		},
		&cli.StringFlag{
			Name:  "debuglevel",
			Value: "info",
			Usage: "log level (trace, debug, info, warn, error, critical, off)",
		},
		&cli.StringFlag{
			Name:  "format",
			Value: "yaml",
			Usage: "output format (yaml, json)",
		},
		&cli.StringFlag{
			Name:  "lnd.host",
			Usage: "lnd rpc address; the node's network becomes the expected network",
		},
		&cli.StringFlag{
			Name:  "lnd.macaroondir",
			Usage: "path to lnd's macaroon dir",
		},
		&cli.StringFlag{
			Name:  "lnd.tlspath",
			Usage: "path to lnd's tls cert",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		if err := applyConfigFile(ctx); err != nil {
			return err
		}

		return setupLogging(ctx.String("debuglevel"))
	}
	app.Commands = []*cli.Command{
		decodeCommand,
		invoiceCommand,
		validateCommand,
		encodeCommand,
	}

	return app
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[lnscan] %v\n", err)
	os.Exit(1)
}

// setupLogging sends the log output of the library packages to stderr.
func setupLogging(level string) error {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("invalid debug level %q", level)
	}

	backend := btclog.NewBackend(os.Stderr)

	scanLog := backend.Logger(lnscan.Subsystem)
	scanLog.SetLevel(lvl)
	lnscan.UseLogger(scanLog)

	lnurlLog := backend.Logger(lnurl.Subsystem)
	lnurlLog.SetLevel(lvl)
	lnurl.UseLogger(lnurlLog)

	return nil
}

// newScanner builds a Scanner from the global flags. If an lnd node is
// configured, it is asked for its network.
func newScanner(ctx *cli.Context) (*lnscan.Scanner, error) {
	cfg := &lnscan.Config{
		HTTP: &lnurl.HTTPClientConfig{
			Timeout:  ctx.Duration("timeout"),
			TorSocks: ctx.String("torsocks"),
		},
	}

	if name := ctx.String("network"); name != "" {
		network, err := lnscan.ParseNetwork(name)
		if err != nil {
			return nil, err
		}
		cfg.Network = &network
	}

	if ctx.String("lnd.host") != "" {
		network, err := lndNetwork(ctx, cfg.Network)
		if err != nil {
			return nil, err
		}
		cfg.Network = &network
	}

	return lnscan.New(cfg)
}

// lndNetwork connects to the configured lnd node and returns the network it
// runs on.
func lndNetwork(ctx *cli.Context, hint *lnscan.NetworkType) (lnscan.NetworkType,
	error) {

	network := lndclient.NetworkMainnet
	if hint != nil {
		network = toLndNetwork(*hint)
	}

	lnd, err := lndclient.NewLndServices(&lndclient.LndServicesConfig{
		LndAddress:  ctx.String("lnd.host"),
		Network:     network,
		MacaroonDir: ctx.String("lnd.macaroondir"),
		TLSPath:     ctx.String("lnd.tlspath"),
	})
	if err != nil {
		return 0, fmt.Errorf("could not connect to LND: %w", err)
	}
	defer lnd.Close()

	return lnscan.NetworkFromParams(lnd.ChainParams)
}

func toLndNetwork(network lnscan.NetworkType) lndclient.Network {
	switch network {
	case lnscan.NetworkTestnet:
		return lndclient.NetworkTestnet
	case lnscan.NetworkRegtest:
		return lndclient.NetworkRegtest
	case lnscan.NetworkSignet:
		return lndclient.NetworkSignet
	default:
		return lndclient.NetworkMainnet
	}
}

// printOutput writes v to w in the selected format.
func printOutput(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(v)

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}

		return enc.Close()

	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
