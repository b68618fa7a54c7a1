// Package ledger implements C1, the Ledger Adapter: single-call
// primitives against a fungible-token ledger identified by principal.
// It performs no retries (§4.1) — retry policy belongs to C5/C4.
package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CashierHQ/cashier-sub001/apierr"
	"github.com/CashierHQ/cashier-sub001/logging"
)

// TransferArgs is the payload of a Client.Transfer call.
type TransferArgs struct {
	Ledger string
	From   string
	To     string
	Amount decimal.Decimal
	Memo   *string
}

// TransferFromArgs is the payload of a Client.TransferFrom call.
type TransferFromArgs struct {
	Ledger  string
	From    string
	To      string
	Spender string
	Amount  decimal.Decimal
	Memo    *string
}

// ApproveArgs is the payload of a Client.Approve call.
type ApproveArgs struct {
	Ledger  string
	From    string
	Spender string
	Amount  decimal.Decimal
}

// Allowance is the result of a Client.Allowance call.
type Allowance struct {
	Allowance decimal.Decimal
	ExpiresAt *uint64
}

// Client is the C1 contract boundary: single-call primitives against a
// ledger canister identified by principal. An implementation talks to
// the ledger over whatever transport the outer process wires in; the
// wire format itself (ICRC-1/2, candid) is out of scope for this engine
// (§1) and lives behind this interface.
type Client interface {
	BalanceOf(ctx context.Context, ledger, account string) (decimal.Decimal, error)
	Allowance(ctx context.Context, ledger, owner, spender string) (Allowance, error)
	Transfer(ctx context.Context, args TransferArgs) (blockIndex uint64, err error)
	TransferFrom(ctx context.Context, args TransferFromArgs) (blockIndex uint64, err error)
	Approve(ctx context.Context, args ApproveArgs) (blockIndex uint64, err error)
}

// CallTransport is the narrow seam a concrete Client implementation
// needs: submit an already-encoded call to a ledger canister and get
// back an already-decoded reply or a transport/ledger rejection. Kept
// separate from Client so that candid encode/decode (out of scope, §1)
// can be swapped independently of the retry-free call discipline C1
// enforces.
type CallTransport interface {
	Call(ctx context.Context, ledger, method string, args any, out any) error
}

type client struct {
	transport CallTransport
	logger    logging.Logger
}

// New builds a Client around transport.
func New(transport CallTransport, logger logging.Logger) Client {
	return &client{transport: transport, logger: logger.NewSystem("ledger")}
}

func (c *client) BalanceOf(ctx context.Context, ledger, account string) (decimal.Decimal, error) {
	callID := uuid.NewString()
	var out struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := c.transport.Call(ctx, ledger, "icrc1_balance_of", map[string]string{"account": account}, &out); err != nil {
		c.logger.Warn("balance_of failed", "call_id", callID, "ledger", ledger, "error", err)
		return decimal.Decimal{}, wrapLedgerErr(err)
	}
	return out.Balance, nil
}

func (c *client) Allowance(ctx context.Context, ledger, owner, spender string) (Allowance, error) {
	callID := uuid.NewString()
	var out Allowance
	args := map[string]string{"account": owner, "spender": spender}
	if err := c.transport.Call(ctx, ledger, "icrc2_allowance", args, &out); err != nil {
		c.logger.Warn("allowance failed", "call_id", callID, "ledger", ledger, "error", err)
		return Allowance{}, wrapLedgerErr(err)
	}
	return out, nil
}

func (c *client) Transfer(ctx context.Context, args TransferArgs) (uint64, error) {
	callID := uuid.NewString()
	var out struct {
		BlockIndex uint64 `json:"block_index"`
	}
	if err := c.transport.Call(ctx, args.Ledger, "icrc1_transfer", args, &out); err != nil {
		c.logger.Warn("transfer failed", "call_id", callID, "ledger", args.Ledger, "error", err)
		return 0, wrapLedgerErr(err)
	}
	return out.BlockIndex, nil
}

func (c *client) TransferFrom(ctx context.Context, args TransferFromArgs) (uint64, error) {
	callID := uuid.NewString()
	var out struct {
		BlockIndex uint64 `json:"block_index"`
	}
	if err := c.transport.Call(ctx, args.Ledger, "icrc2_transfer_from", args, &out); err != nil {
		c.logger.Warn("transfer_from failed", "call_id", callID, "ledger", args.Ledger, "error", err)
		return 0, wrapLedgerErr(err)
	}
	return out.BlockIndex, nil
}

func (c *client) Approve(ctx context.Context, args ApproveArgs) (uint64, error) {
	callID := uuid.NewString()
	var out struct {
		BlockIndex uint64 `json:"block_index"`
	}
	if err := c.transport.Call(ctx, args.Ledger, "icrc2_approve", args, &out); err != nil {
		c.logger.Warn("approve failed", "call_id", callID, "ledger", args.Ledger, "error", err)
		return 0, wrapLedgerErr(err)
	}
	return out.BlockIndex, nil
}

func wrapLedgerErr(err error) error {
	var rejectErr *CanisterCallRejected
	if ok := asRejected(err, &rejectErr); ok {
		return apierr.LedgerError(rejectErr.Code, rejectErr.Msg)
	}
	return apierr.LedgerError("unknown", err.Error())
}

// CanisterCallRejected is returned by a CallTransport when the ledger
// canister rejected the call at the transport level (§4.1).
type CanisterCallRejected struct {
	Code string
	Msg  string
}

func (e *CanisterCallRejected) Error() string {
	return fmt.Sprintf("canister call rejected (%s): %s", e.Code, e.Msg)
}

func asRejected(err error, target **CanisterCallRejected) bool {
	rej, ok := err.(*CanisterCallRejected)
	if ok {
		*target = rej
	}
	return ok
}

// VaultSubaccount derives the deterministic link subaccount/vault
// identifier for linkID (glossary: "Link subaccount / vault"), using the
// same Keccak256 primitive the teacher uses to derive deterministic
// application-session ids from their inputs.
func VaultSubaccount(linkID string) string {
	hash := crypto.Keccak256Hash([]byte("cashier-link-vault:" + linkID))
	return hash.Hex()
}
