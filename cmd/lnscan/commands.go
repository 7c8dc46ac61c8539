package main

import (
	"errors"
	"fmt"

	"github.com/ellemouton/lnscan"
	"github.com/ellemouton/lnscan/lnurl"
	"github.com/ellemouton/lnscan/onchain"
	"github.com/urfave/cli/v2"
)

var decodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "Decode a payment string",
	ArgsUsage: "input",
	Description: `Decode an address, BIP-21 URI, BOLT11 invoice, LNURL,
	lightning address or node connection string. LNURLs and lightning
	addresses are resolved against their service.`,
	Action: decode,
}

type decodeOutput struct {
	Kind   lnscan.Kind   `json:"kind" yaml:"kind"`
	Result lnscan.Result `json:"result" yaml:"result"`
}

func decode(ctx *cli.Context) error {
	input := ctx.Args().First()
	if input == "" {
		return errors.New("missing input")
	}

	scanner, err := newScanner(ctx)
	if err != nil {
		return err
	}

	result, err := scanner.Decode(ctx.Context, input)
	if err != nil {
		return err
	}

	return printOutput(ctx.App.Writer, ctx.String("format"), &decodeOutput{
		Kind:   result.Kind(),
		Result: result,
	})
}

var invoiceCommand = &cli.Command{
	Name:      "invoice",
	Usage:     "Request an invoice from an LNURL-pay service",
	ArgsUsage: "lnurl-or-address",
	Flags: []cli.Flag{
		&cli.Uint64Flag{
			Name:     "amt",
			Usage:    "the amount to request, in satoshis",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "comment",
			Usage: "a comment to attach, if the service accepts comments",
		},
	},
	Action: requestInvoice,
}

func requestInvoice(ctx *cli.Context) error {
	input := ctx.Args().First()
	if input == "" {
		return errors.New("missing lnurl or lightning address")
	}

	scanner, err := newScanner(ctx)
	if err != nil {
		return err
	}

	result, err := scanner.Decode(ctx.Context, input)
	if err != nil {
		return err
	}

	pay, ok := result.(*lnscan.LnurlPay)
	if !ok {
		return fmt.Errorf("%s is not an LNURL-pay request",
			result.Kind())
	}

	invoice, err := scanner.RequestInvoice(
		ctx.Context, pay, ctx.Uint64("amt"), ctx.String("comment"),
	)
	if err != nil {
		return err
	}

	decoded, err := scanner.Decode(ctx.Context, invoice)
	if err != nil {
		return fmt.Errorf("service returned an unusable invoice: %w",
			err)
	}

	return printOutput(ctx.App.Writer, ctx.String("format"), &decodeOutput{
		Kind:   decoded.Kind(),
		Result: decoded,
	})
}

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Validate a bitcoin address",
	ArgsUsage: "address",
	Action:    validateAddress,
}

type validateOutput struct {
	Address string             `json:"address" yaml:"address"`
	Network lnscan.NetworkType `json:"network" yaml:"network"`
	Type    string             `json:"type" yaml:"type"`
}

func validateAddress(ctx *cli.Context) error {
	address := ctx.Args().First()
	if address == "" {
		return errors.New("missing address")
	}

	validated, err := onchain.NewChainAddressValidator().Validate(address)
	if err != nil {
		return err
	}

	network, err := lnscan.NetworkFromParams(validated.Network)
	if err != nil {
		return err
	}

	return printOutput(ctx.App.Writer, ctx.String("format"), &validateOutput{
		Address: validated.Address,
		Network: network,
		Type:    validated.Type.String(),
	})
}

var encodeCommand = &cli.Command{
	Name:      "encode",
	Usage:     "Encode a URL as a bech32 LNURL",
	ArgsUsage: "url",
	Action:    encodeURL,
}

func encodeURL(ctx *cli.Context) error {
	target := ctx.Args().First()
	if target == "" {
		return errors.New("missing url")
	}

	encoded, err := lnurl.EncodeURL(target)
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, encoded)

	return nil
}
