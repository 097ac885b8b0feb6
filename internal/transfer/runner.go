package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"sonic-transfer/internal/solana"
	"sonic-transfer/internal/wallet"
)

// DefaultMaxTransfers caps the number of transfer attempts per run.
const DefaultMaxTransfers = 100

// StopReason explains why a run ended.
type StopReason string

// Stop reasons.
const (
	StopCapReached        StopReason = "cap_reached"
	StopInsufficientFunds StopReason = "insufficient_funds"
	StopCanceled          StopReason = "canceled"
)

// TransferSender submits one transfer and waits for confirmation.
type TransferSender interface {
	SendAndConfirm(ctx context.Context, from *wallet.Keypair, to solanago.PublicKey, lamports uint64) (string, error)
}

// BalanceFetcher reads an account balance in lamports.
type BalanceFetcher interface {
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// KeyGenerator produces a fresh destination keypair.
type KeyGenerator func() (*wallet.Keypair, error)

// Reporter receives human-facing progress events.
type Reporter interface {
	StartingBalance(lamports uint64)
	Confirmed(signature string)
	Sent(amount float64, to string)
	UpdatedBalance(lamports uint64)
	InsufficientFunds(lamports uint64)
	Failed(to string, err error)
	Finished(summary *Summary)
}

// Recorder receives metrics events.
type Recorder interface {
	TransferAttempted()
	TransferSucceeded(lamports uint64, elapsed time.Duration)
	TransferFailed(reason string)
	SetBalance(lamports uint64)
}

// Summary describes a finished run.
type Summary struct {
	StartingBalance uint64
	FinalBalance    uint64
	Attempted       int
	Succeeded       int
	Failed          int
	LamportsSent    uint64
	Stop            StopReason
}

// Config controls the transfer loop.
type Config struct {
	MaxTransfers int
	Sampler      AmountSampler
	NewKey       KeyGenerator
}

// DefaultConfig returns the stock loop: 100 transfers of [0.0009, 0.001) SOL
// to random addresses.
func DefaultConfig() Config {
	return Config{
		MaxTransfers: DefaultMaxTransfers,
		Sampler:      UniformSampler{Min: DefaultMinAmount, Max: DefaultMaxAmount},
		NewKey:       wallet.NewRandomKeypair,
	}
}

// Runner sends transfers from one funded account until funds or the cap run out.
type Runner struct {
	from     *wallet.Keypair
	balances BalanceFetcher
	sender   TransferSender
	cfg      Config
	reporter Reporter
	recorder Recorder
	logger   *log.Logger
}

// RunnerOption configures Runner.
type RunnerOption func(*Runner)

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) RunnerOption {
	return func(rn *Runner) {
		rn.reporter = r
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) RunnerOption {
	return func(rn *Runner) {
		rn.recorder = r
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) RunnerOption {
	return func(rn *Runner) {
		rn.logger = l
	}
}

// NewRunner creates a Runner. Zero values in cfg fall back to DefaultConfig.
func NewRunner(from *wallet.Keypair, balances BalanceFetcher, sender TransferSender, cfg Config, opts ...RunnerOption) *Runner {
	def := DefaultConfig()
	if cfg.MaxTransfers <= 0 {
		cfg.MaxTransfers = def.MaxTransfers
	}
	if cfg.Sampler == nil {
		cfg.Sampler = def.Sampler
	}
	if cfg.NewKey == nil {
		cfg.NewKey = def.NewKey
	}

	r := &Runner{
		from:     from,
		balances: balances,
		sender:   sender,
		cfg:      cfg,
		reporter: nopReporter{},
		recorder: nopRecorder{},
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the transfer loop. The balance is read once; afterwards it is
// only decremented locally by confirmed transfers. Per-transfer failures are
// reported and skipped; the only returned error is the initial balance query.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	balance, err := r.balances.GetBalance(ctx, r.from.Address())
	if err != nil {
		return nil, fmt.Errorf("get starting balance: %w", err)
	}

	summary := &Summary{StartingBalance: balance, Stop: StopCapReached}
	r.reporter.StartingBalance(balance)
	r.recorder.SetBalance(balance)

	for i := 0; i < r.cfg.MaxTransfers; i++ {
		if ctx.Err() != nil {
			summary.Stop = StopCanceled
			break
		}

		dest, err := r.cfg.NewKey()
		amount := r.cfg.Sampler.Sample()

		if float64(balance) < amount*LamportsPerSOL {
			r.reporter.InsufficientFunds(balance)
			summary.Stop = StopInsufficientFunds
			break
		}

		summary.Attempted++
		r.recorder.TransferAttempted()

		if err != nil {
			summary.Failed++
			r.recorder.TransferFailed("keygen")
			r.reporter.Failed("", fmt.Errorf("generate destination: %w", err))
			continue
		}

		lamports := ToLamports(amount)
		start := time.Now()
		sig, err := r.sender.SendAndConfirm(ctx, r.from, dest.PublicKey(), lamports)
		if err != nil {
			summary.Failed++
			r.recorder.TransferFailed(failureReason(err))
			r.logger.Printf("transfer %d to %s failed after %s: %v", i+1, dest.Address(), time.Since(start), err)
			r.reporter.Failed(dest.Address(), err)
			continue
		}

		balance -= lamports
		summary.Succeeded++
		summary.LamportsSent += lamports

		r.recorder.TransferSucceeded(lamports, time.Since(start))
		r.recorder.SetBalance(balance)
		r.reporter.Confirmed(sig)
		r.reporter.Sent(amount, dest.Address())
		r.reporter.UpdatedBalance(balance)
	}

	summary.FinalBalance = balance
	r.reporter.Finished(summary)
	return summary, nil
}

// failureReason maps a transfer error to a metrics label.
func failureReason(err error) string {
	var sendErr *solana.SendTransactionError
	var failed *solana.TransactionFailedError
	switch {
	case errors.As(err, &sendErr):
		return "simulation"
	case errors.As(err, &failed):
		return "onchain"
	case errors.Is(err, solana.ErrBlockhashExpired):
		return "expired"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "rpc"
	}
}

type nopReporter struct{}

func (nopReporter) StartingBalance(uint64) {}
func (nopReporter) Confirmed(string) {}
func (nopReporter) Sent(float64, string) {}
func (nopReporter) UpdatedBalance(uint64) {}
func (nopReporter) InsufficientFunds(uint64) {}
func (nopReporter) Failed(string, error) {}
func (nopReporter) Finished(*Summary) {}

type nopRecorder struct{}

func (nopRecorder) TransferAttempted() {}
func (nopRecorder) TransferSucceeded(uint64, time.Duration) {}
func (nopRecorder) TransferFailed(string) {}
func (nopRecorder) SetBalance(uint64) {}
