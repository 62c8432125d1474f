// Command utxonetctl is the client front-end to a validator node.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/utxonet/utxonet/internal/client"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error happened:", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var nodeAddr string

	root := &cobra.Command{
		Use:           "utxonetctl",
		Short:         "Client for a UTXO ledger validator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&nodeAddr, "node", "127.0.0.1:9065", "validator host:port to talk to")

	ping := &cobra.Command{
		Use:   "ping [message]",
		Short: "Check the validator answers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := "ping"
			if len(args) == 1 {
				msg = args[0]
			}
			resp, err := client.New(nodeAddr).Ping(msg)
			if err != nil {
				return err
			}
			fmt.Println(resp.Msg)
			return nil
		},
	}

	generateWallet := &cobra.Command{
		Use:   "generate-wallet",
		Short: "Mint a fresh keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.New(nodeAddr).GenerateWallet()
			if err != nil {
				return err
			}
			fmt.Println("private key:", resp.PrivateKey)
			fmt.Println("public key: ", resp.PublicKey)
			return nil
		},
	}

	printBalances := &cobra.Command{
		Use:   "print-balances",
		Short: "List per-address balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.New(nodeAddr).PrintBalances()
			if err != nil {
				return err
			}
			for _, b := range resp.Balances {
				fmt.Printf("%s  %d\n", b.Address, b.Amount)
			}
			return nil
		},
	}

	printValidators := &cobra.Command{
		Use:   "print-validators",
		Short: "List known validators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.New(nodeAddr).PrintValidators()
			if err != nil {
				return err
			}
			for _, v := range resp.Validators {
				addr := "<no address>"
				if v.Address != nil {
					addr = *v.Address
				}
				fmt.Printf("%s  %s\n", addr, v.PublicKey)
			}
			return nil
		},
	}

	printBlockchain := &cobra.Command{
		Use:   "print-blockchain",
		Short: "Pretty-print the chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.New(nodeAddr).PrintBlockchain()
			if err != nil {
				return err
			}
			for _, block := range resp.Blocks {
				fmt.Println(block)
			}
			return nil
		},
	}

	var from, to string
	var amount uint64
	balanceTransaction := &cobra.Command{
		Use:   "balance-transaction",
		Short: "Compute a transfer without committing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.New(nodeAddr).BalanceTransaction(from, to, amount)
			if err != nil {
				return err
			}
			fmt.Println(resp.Body)
			fmt.Println("cbor:", resp.Cbor)
			return nil
		},
	}
	balanceTransaction.Flags().StringVar(&from, "from", "", "sender public key (hex)")
	balanceTransaction.Flags().StringVar(&to, "to", "", "recipient public key (hex)")
	balanceTransaction.Flags().Uint64Var(&amount, "amount", 0, "amount to transfer")
	for _, f := range []string{"from", "to", "amount"} {
		_ = balanceTransaction.MarkFlagRequired(f)
	}

	var transactionCbor, privateKey string
	commitTransaction := &cobra.Command{
		Use:   "commit-transaction",
		Short: "Sign a balanced transaction and commit it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.New(nodeAddr).CommitTransaction(transactionCbor, privateKey)
			if err != nil {
				return err
			}
			fmt.Println("new tip:", resp.BlockchainHash)
			return nil
		},
	}
	commitTransaction.Flags().StringVar(&transactionCbor, "cbor", "", "hex CBOR of the balanced transaction")
	commitTransaction.Flags().StringVar(&privateKey, "private-key", "", "sender private key (hex)")
	for _, f := range []string{"cbor", "private-key"} {
		_ = commitTransaction.MarkFlagRequired(f)
	}

	tip := &cobra.Command{
		Use:   "tip",
		Short: "Print the validator's chain hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := client.New(nodeAddr).Tip()
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}

	root.AddCommand(ping, generateWallet, printBalances, printValidators,
		printBlockchain, balanceTransaction, commitTransaction, tip)
	return root
}
