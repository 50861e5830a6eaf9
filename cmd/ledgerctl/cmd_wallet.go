package main

import (
	"context"
	"fmt"

	"ledgerdesk/internal/client/wallet"

	"github.com/spf13/pflag"
)

func walletCommand(ctx context.Context, getApp appFunc) *Command {
	var name, walletType string
	var to, amount string
	return &Command{
		Name:    "wallet",
		Summary: "Connect a wallet, check its balance and send ETH",
		Subcommands: []*Command{
			{
				Name:    "connect",
				Summary: "Connect a wallet with its private key (sent to the server, never stored here)",
				Flags: func() *pflag.FlagSet {
					fs := pflag.NewFlagSet("connect", pflag.ContinueOnError)
					fs.StringVar(&name, "name", "Main wallet", "wallet name")
					fs.StringVar(&walletType, "type", "ethereum", "wallet type")
					return fs
				},
				Run: func(args []string) error {
					a, err := getApp()
					if err != nil {
						return err
					}
					key, err := readPassword("Private key: ")
					if err != nil {
						return err
					}
					w, err := a.wallet.Connect(ctx, wallet.ConnectForm{PrivateKey: key, Name: name, WalletType: walletType})
					if err != nil {
						return err
					}
					fmt.Printf("Connected %s (%s ETH)\n", w.Address, w.ETHBalance)
					return nil
				},
			},
			{
				Name:    "reconnect",
				Summary: "Restore the stored wallet if the server still holds it",
				Run: func(args []string) error {
					a, err := getApp()
					if err != nil {
						return err
					}
					w, err := a.wallet.Reconnect(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("Reconnected %s (%s ETH)\n", w.Address, w.ETHBalance)
					return nil
				},
			},
			{
				Name:    "balance",
				Summary: "Show the wallet balance",
				Run: func(args []string) error {
					a, err := getApp()
					if err != nil {
						return err
					}
					b, err := a.wallet.Balance(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("%s\n  %s ETH\n  $%s\n", b.Address, b.ETH.String(), b.USD.StringFixed(2))
					return nil
				},
			},
			{
				Name:    "send",
				Summary: "Send ETH",
				Flags: func() *pflag.FlagSet {
					fs := pflag.NewFlagSet("send", pflag.ContinueOnError)
					fs.StringVar(&to, "to", "", "recipient address (0x...)")
					fs.StringVar(&amount, "amount", "", "amount in ETH")
					return fs
				},
				Run: func(args []string) error {
					a, err := getApp()
					if err != nil {
						return err
					}
					res, err := a.wallet.Send(ctx, wallet.SendForm{ToAddress: to, Amount: amount})
					if err != nil {
						return err
					}
					fmt.Printf("Submitted %s (%s)\n", res.TxHash, res.Status)
					return nil
				},
			},
		},
	}
}
