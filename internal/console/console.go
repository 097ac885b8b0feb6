// Package console prints colored, human-readable transfer progress.
package console

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"sonic-transfer/internal/solana"
	"sonic-transfer/internal/transfer"
)

// Printer writes status lines. It implements transfer.Reporter.
type Printer struct {
	out    io.Writer
	errOut io.Writer

	info    *color.Color
	success *color.Color
	warning *color.Color
	fail    *color.Color
	banner  *color.Color
}

// Option configures Printer.
type Option func(*Printer)

// WithoutColor disables ANSI colors regardless of the terminal.
func WithoutColor() Option {
	return func(p *Printer) {
		for _, c := range []*color.Color{p.info, p.success, p.warning, p.fail, p.banner} {
			c.DisableColor()
		}
	}
}

// New creates a Printer writing progress to out and failures to errOut.
// Nil writers default to stdout and stderr.
func New(out, errOut io.Writer, opts ...Option) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	p := &Printer{
		out:     out,
		errOut:  errOut,
		info:    color.New(color.FgCyan),
		success: color.New(color.FgGreen, color.Bold),
		warning: color.New(color.FgYellow, color.Bold),
		fail:    color.New(color.FgRed, color.Bold),
		banner:  color.New(color.FgMagenta),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FormatSOL renders lamports as SOL with 8 decimals.
func FormatSOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9).StringFixed(8)
}

// FormatAmount renders a SOL amount with 8 decimals.
func FormatAmount(sol float64) string {
	return decimal.NewFromFloat(sol).StringFixed(8)
}

// bannerArt is the SonicGame logo.
var bannerArt = []string{
	`   ____          _     _____              `,
	`  / __/__  ___  (_)___/ ___/__ ___ _  ___ `,
	` _\ \/ _ \/ _ \/ / __/ (_ / _ ` + "`" + `/  ' \/ -_)`,
	`/___/\___/_//_/_/\__/\___/\_,_/_/_/_/\__/ `,
}

// Banner prints the startup logo followed by a blank line.
func (p *Printer) Banner() {
	for _, line := range bannerArt {
		p.banner.Fprintln(p.out, line)
	}
	fmt.Fprintln(p.out)
}

// Endpoint prints the RPC endpoint in use.
func (p *Printer) Endpoint(endpoint string) {
	p.info.Fprintf(p.out, "RPC endpoint: %s\n", endpoint)
}

// Sender prints the sending account.
func (p *Printer) Sender(address string) {
	p.info.Fprintf(p.out, "Sender address: %s\n", address)
}

// StartingBalance implements transfer.Reporter.
func (p *Printer) StartingBalance(lamports uint64) {
	p.info.Fprintf(p.out, "Starting balance of the sender: %s SOL\n", FormatSOL(lamports))
}

// Confirmed implements transfer.Reporter.
func (p *Printer) Confirmed(signature string) {
	fmt.Fprintln(p.out, p.success.Sprint("Transaction confirmed with signature:"), p.warning.Sprint(signature))
}

// Sent implements transfer.Reporter.
func (p *Printer) Sent(amount float64, to string) {
	p.success.Fprintf(p.out, "Successfully sent %s SOL to %s\n", FormatAmount(amount), to)
}

// UpdatedBalance implements transfer.Reporter.
func (p *Printer) UpdatedBalance(lamports uint64) {
	p.info.Fprintf(p.out, "Updated balance of the sender: %s SOL\n", FormatSOL(lamports))
}

// InsufficientFunds implements transfer.Reporter.
func (p *Printer) InsufficientFunds(lamports uint64) {
	p.warning.Fprintf(p.out, "Insufficient funds for the next transfer. Current balance: %s SOL\n", FormatSOL(lamports))
}

// Failed implements transfer.Reporter. Simulation logs are printed when the
// node rejected the transaction in preflight.
func (p *Printer) Failed(to string, err error) {
	var sendErr *solana.SendTransactionError
	if errors.As(err, &sendErr) {
		fmt.Fprintln(p.errOut, p.fail.Sprint("Transaction simulation failed:"), sendErr.Message)
		fmt.Fprintln(p.errOut, p.fail.Sprint("Logs:"), fmt.Sprintf("%q", sendErr.Logs))
	}

	if to == "" {
		fmt.Fprintln(p.errOut, p.fail.Sprint("Transfer failed:"), err)
		return
	}
	fmt.Fprintln(p.errOut, p.fail.Sprintf("Failed to send SOL to %s:", to), err)
}

// Finished implements transfer.Reporter.
func (p *Printer) Finished(s *transfer.Summary) {
	p.info.Fprintf(p.out, "Finished sending SOL to %d addresses (%d attempted, %d failed, stop: %s).\n",
		s.Succeeded, s.Attempted, s.Failed, s.Stop)
}

// Error prints a fatal startup error.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.errOut, p.fail.Sprint("Error:"), err)
}
