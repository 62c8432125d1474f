package ledger

import (
	"fmt"
	"strings"
)

// Shorten compresses a long hex string to its head and tail for display.
func Shorten(s string) string {
	const keep = 20
	if len(s) <= 2*keep+4 {
		return s
	}
	return s[:keep] + "...." + s[len(s)-keep:]
}

// Describe renders every block as a human-readable summary, one string per
// block, the PrintBlockchain payload.
func (c *Chain) Describe() []string {
	out := make([]string, 0, len(c.Blocks))
	for idx, b := range c.Blocks {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d. Block %s", idx+1, b.Hash)
		sb.WriteString("\n  Input UTxOs:")
		for i, in := range b.Transaction.BalancedTransaction.Inputs {
			fmt.Fprintf(&sb, "\n    Input %d:", i+1)
			fmt.Fprintf(&sb, "\n      Addr: %s", Shorten(string(in.Address)))
			fmt.Fprintf(&sb, "\n      Amount: %d", in.Amount)
		}
		sb.WriteString("\n  Output UTxOs:")
		for i, o := range b.Transaction.BalancedTransaction.Outputs {
			fmt.Fprintf(&sb, "\n    Output %d:", i+1)
			fmt.Fprintf(&sb, "\n      Addr: %s", Shorten(string(o.Address)))
			fmt.Fprintf(&sb, "\n      Amount: %d", o.Amount)
		}
		fmt.Fprintf(&sb, "\n  Transaction signature: %s", Shorten(string(b.Transaction.Signature)))
		sigs := b.Signatures()
		fmt.Fprintf(&sb, "\n  Confirmations (total %d):", len(sigs))
		for i, vs := range sigs {
			fmt.Fprintf(&sb, "\n    Confirmation %d:", i+1)
			fmt.Fprintf(&sb, "\n      Validator Id: %s", Shorten(string(vs.ValidatorPublicKey)))
			fmt.Fprintf(&sb, "\n      Signature: %s", Shorten(string(vs.ValidatorSignature)))
		}
		out = append(out, sb.String())
	}
	return out
}
