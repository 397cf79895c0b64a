// Package fhe models the homomorphic-ciphertext engine the ledger computes
// against. Values stay opaque: the core only ever holds a Handle and combines
// handles through the algebraic operations below. Nothing in this package
// lets the ledger branch on a plaintext.
package fhe

import (
	"context"
	"errors"
)

// Width is the declared bit width of the encrypted unsigned integer a
// handle refers to.
type Width int

const (
	Bits8  Width = 8
	Bits16 Width = 16
	Bits32 Width = 32
	Bits64 Width = 64
)

// Handle is an opaque reference to an encrypted unsigned integer.
// The empty string means "no ciphertext".
type Handle string

func (h Handle) IsZero() bool { return h == "" }

// ExternalCiphertext is a client-submitted ciphertext plus the validity
// proof binding it to the expected encryption context. It is untrusted
// until FromExternal verifies it.
type ExternalCiphertext struct {
	Handle string `json:"handle"`
	Proof  string `json:"proof"`
}

var (
	ErrInvalidProof  = errors.New("invalid ciphertext proof")
	ErrUnknownHandle = errors.New("unknown ciphertext handle")
	ErrNotAuthorized = errors.New("principal not authorized for handle")
	ErrWidthMismatch = errors.New("ciphertext width mismatch")
)

// Engine is the ciphertext primitive set consumed by the ledger core.
// All operations are synchronous and return new handles immediately;
// only decryption is asynchronous (RequestDecryption hands back a
// correlation id, the plaintext arrives via the off-chain oracle).
type Engine interface {
	// FromExternal verifies a client ciphertext+proof pair and returns a
	// trusted handle of the declared width. ErrInvalidProof fails the
	// surrounding transaction before any mutation.
	FromExternal(ctx context.Context, ext ExternalCiphertext, w Width) (Handle, error)

	// Trivial encrypts a plaintext constant known to the ledger itself.
	Trivial(ctx context.Context, value uint64, w Width) (Handle, error)

	Add(ctx context.Context, a, b Handle) (Handle, error)
	Sub(ctx context.Context, a, b Handle) (Handle, error)
	Mul(ctx context.Context, a, b Handle) (Handle, error)
	// Div is integer division. Division by an encrypted zero yields a
	// trivial zero rather than an error (the engine cannot see the zero).
	Div(ctx context.Context, a, b Handle) (Handle, error)

	// Comparisons return an encrypted boolean (8-bit handle holding 0/1).
	CompareGE(ctx context.Context, a, b Handle) (Handle, error)
	CompareGT(ctx context.Context, a, b Handle) (Handle, error)
	CompareLE(ctx context.Context, a, b Handle) (Handle, error)
	CompareLT(ctx context.Context, a, b Handle) (Handle, error)

	// Select returns a when cond is encrypted-true, b otherwise.
	Select(ctx context.Context, cond, a, b Handle) (Handle, error)

	// Grant authorizes a principal to later decrypt exactly this handle.
	Grant(ctx context.Context, principal string, h Handle) error

	// RequestDecryption asks the off-chain oracle to reveal the handles.
	// The returned correlation id ties the request to the later,
	// externally-triggered completion transaction.
	RequestDecryption(ctx context.Context, handles []Handle) (string, error)
}

// LedgerPrincipal is the identity the ledger grants itself on every
// ciphertext it stores, so later transactions may keep computing on it.
const LedgerPrincipal = "ledger"

// EnsureZero returns h unchanged, or a trivial zero of the given width when
// h has never been initialized. Accumulator columns start out this way.
func EnsureZero(ctx context.Context, e Engine, h Handle, w Width) (Handle, error) {
	if !h.IsZero() {
		return h, nil
	}
	return e.Trivial(ctx, 0, w)
}
