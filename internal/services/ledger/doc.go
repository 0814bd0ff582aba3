/*
Package ledger implements the wallet ledger service: per-user, per-currency
balances backed by an append-only transaction ledger.

The service is the only writer of wallet balances. Every mutating operation
validates its inputs first, then runs inside a single database transaction
that locks the touched wallet rows (in ascending wallet-id order when more
than one is involved), re-validates against the locked state, writes the
ledger entr(ies) and applies the balance deltas. A rejected operation has
zero side effects.

Usage:

	svc := ledger.NewService(walletRepo, ledgerRepo, cache, feeCalc, rates, gw, ledger.Config{}, nil)

	w, err := svc.CreateWallet(ctx, userID, "USD")
	entry, err := svc.Deposit(ctx, w.ID, 100, "signup bonus")
	result, err := svc.Transfer(ctx, w.ID, other.ID, 25, "thanks!")

Ledger conventions:

  - Entry amounts are signed relative to the owning wallet.
  - A transfer or donation produces two entries sharing one reference.
  - A withdrawal's fee is a linked fee entry so that a wallet's balance
    always equals the sum of its completed entry amounts.
  - Completed entries are immutable; corrections are new entries.

Gateway-settled deposits and withdrawals create pending entries carrying
the provider reference; ConfirmGatewayTransaction applies the balance
effect and the status flip atomically once the webhook arrives.
*/
package ledger
