package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/ellemouton/lnscan/lnurl"
	"github.com/ellemouton/lnscan/lnurltest"
	"github.com/lightninglabs/lndclient"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Name = "lnurld"
	app.Usage = "Run a local LNURL service for wallet development"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Value: "localhost:8080",
			Usage: "address to listen on",
		},
		&cli.StringFlag{
			Name:  "publicurl",
			Value: "http://localhost:8080",
			Usage: "base url wallets reach the service on",
		},
		&cli.Uint64Flag{
			Name:  "minsendable",
			Value: 1000,
			Usage: "min pay amount in millisats",
		},
		&cli.Uint64Flag{
			Name:  "maxsendable",
			Value: 100_000_000,
			Usage: "max pay amount in millisats",
		},
		&cli.UintFlag{
			Name:  "commentallowed",
			Usage: "max comment length, 0 disables comments",
		},
		&cli.StringSliceFlag{
			Name:  "user",
			Usage: "lightning address username to serve",
		},
		&cli.StringFlag{
			Name:  "invoice",
			Usage: "static invoice returned by the pay callback",
		},
		&cli.StringFlag{
			Name:  "lnd.host",
			Usage: "lnd rpc address, invoices are created on this node",
		},
		&cli.StringFlag{
			Name:  "lnd.network",
			Value: "regtest",
			Usage: "the network lnd runs on",
		},
		&cli.StringFlag{
			Name:  "lnd.p2paddr",
			Value: "localhost:9735",
			Usage: "host:port peers reach lnd on, served as the channel uri",
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
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[lnurld] %v\n", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg := &lnurltest.Config{
		MinSendable:     lnwire.MilliSatoshi(ctx.Uint64("minsendable")),
		MaxSendable:     lnwire.MilliSatoshi(ctx.Uint64("maxsendable")),
		CommentAllowed:  uint32(ctx.Uint("commentallowed")),
		MaxWithdrawable: lnwire.MilliSatoshi(ctx.Uint64("maxsendable")),
		Users:           ctx.StringSlice("user"),
	}

	switch {
	case ctx.String("lnd.host") != "":
		lnd, err := lndclient.NewLndServices(&lndclient.LndServicesConfig{
			LndAddress:  ctx.String("lnd.host"),
			Network:     lndclient.Network(ctx.String("lnd.network")),
			MacaroonDir: ctx.String("lnd.macaroondir"),
			TLSPath:     ctx.String("lnd.tlspath"),
		})
		if err != nil {
			return fmt.Errorf("could not connect to LND: %w", err)
		}
		defer lnd.Close()

		fmt.Println("Connected to node with alias:", lnd.NodeAlias)

		cfg.Invoice = lndInvoice(lnd.Client)
		cfg.ChannelURI = fmt.Sprintf("%x@%s", lnd.NodePubkey[:],
			ctx.String("lnd.p2paddr"))

	case ctx.String("invoice") != "":
		cfg.Invoice = lnurltest.StaticInvoice(ctx.String("invoice"))

	default:
		return errors.New("one of --invoice or --lnd.host is required")
	}

	base := strings.TrimSuffix(ctx.String("publicurl"), "/")
	if err := printHello(base, cfg.Users); err != nil {
		return err
	}

	return http.ListenAndServe(
		ctx.String("listen"), lnurltest.NewService(cfg),
	)
}

// lndInvoice creates invoices on the connected node, committing to the hash
// of the pay request metadata.
func lndInvoice(client lndclient.LightningClient) lnurltest.InvoiceFunc {
	return func(ctx context.Context, amt lnwire.MilliSatoshi,
		descHash [32]byte, _ string) (string, error) {

		hash := lntypes.Hash(descHash)
		_, pr, err := client.AddInvoice(ctx, &invoicesrpc.AddInvoiceData{
			Memo:            "lnurld-pay",
			Value:           amt,
			DescriptionHash: hash[:],
		})

		return pr, err
	}
}

func printHello(base string, users []string) error {
	payCode := base + lnurltest.PayPath
	payLNURL, err := lnurl.EncodeURL(payCode)
	if err != nil {
		return err
	}

	withdrawLNURL, err := lnurl.EncodeURL(base + lnurltest.WithdrawPath)
	if err != nil {
		return err
	}

	authURL, err := lnurltest.AuthURL(base)
	if err != nil {
		return err
	}
	authLNURL, err := lnurl.EncodeURL(authURL)
	if err != nil {
		return err
	}

	scheme, _, _ := strings.Cut(base, "://")

	fmt.Printf(
		""+
			"=======================================\n"+
			"Welcome to lnurld!\n"+
			"Your static LNURL-pay code is: \n"+
			"- %s\n"+
			"- lightning:%s\n"+
			"- %s\n"+
			"LNURL-withdraw: %s\n"+
			"LNURL-auth: %s\n",
		payLNURL, payLNURL, strings.Replace(
			payCode, scheme, "lnurlp", 1,
		), withdrawLNURL, authLNURL,
	)

	host := strings.TrimPrefix(base, scheme+"://")
	for _, user := range users {
		fmt.Printf("Lightning address: %s@%s\n", user, host)
	}

	fmt.Println("=======================================")

	return nil
}
