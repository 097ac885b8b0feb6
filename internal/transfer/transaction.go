package transfer

import (
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"sonic-transfer/internal/wallet"
)

// BuildTransfer returns a signed transaction moving lamports from the sender to
// the destination with a single system-program transfer. The sender pays fees.
func BuildTransfer(from *wallet.Keypair, to solanago.PublicKey, lamports uint64, blockhash string) (*solanago.Transaction, error) {
	recent, err := solanago.HashFromBase58(blockhash)
	if err != nil {
		return nil, fmt.Errorf("parse blockhash: %w", err)
	}

	payer := from.PublicKey()
	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{
			system.NewTransferInstruction(lamports, payer, to).Build(),
		},
		recent,
		solanago.TransactionPayer(payer),
	)
	if err != nil {
		return nil, fmt.Errorf("new transaction: %w", err)
	}

	priv := from.PrivateKey()
	if _, err := tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(payer) {
			return &priv
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	return tx, nil
}
