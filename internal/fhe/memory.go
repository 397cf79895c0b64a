package fhe

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type slot struct {
	value  uint64
	width  Width
	proof  string
	grants map[string]bool
}

// MemoryEngine is an in-process Engine backed by a plaintext store: the
// arithmetic is real, the confidentiality is simulated. The core never
// reaches into the store; only EncryptInput/Reveal/Fulfill (the client and
// oracle sides) touch plaintext.
type MemoryEngine struct {
	mu      sync.Mutex
	secret  []byte
	slots   map[Handle]*slot
	pending map[string][]Handle
}

func NewMemoryEngine() *MemoryEngine {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)
	return newMemoryEngine(secret)
}

// NewMemoryEngineWithSecret derives the proof key from a configured secret,
// so client tooling sharing the secret can mint verifiable proofs.
func NewMemoryEngineWithSecret(secret string) *MemoryEngine {
	sum := sha256.Sum256([]byte(secret))
	return newMemoryEngine(sum[:])
}

func newMemoryEngine(secret []byte) *MemoryEngine {
	return &MemoryEngine{
		secret:  secret,
		slots:   map[Handle]*slot{},
		pending: map[string][]Handle{},
	}
}

func (e *MemoryEngine) newHandle() Handle {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return Handle(hex.EncodeToString(b))
}

func (e *MemoryEngine) bind(handle Handle, principal string) string {
	mac := hmac.New(sha256.New, e.secret)
	mac.Write([]byte(string(handle) + "|" + principal))
	return hex.EncodeToString(mac.Sum(nil))
}

func mask(w Width) uint64 {
	if w >= Bits64 {
		return ^uint64(0)
	}
	return (1 << uint(w)) - 1
}

// EncryptInput is the client-side encryption step: it produces the
// ciphertext+proof pair a caller submits with a transaction. principal is
// the submitting identity the proof is bound to.
func (e *MemoryEngine) EncryptInput(principal string, value uint64, w Width) ExternalCiphertext {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.newHandle()
	proof := e.bind(h, principal)
	e.slots[h] = &slot{value: value & mask(w), width: w, proof: proof, grants: map[string]bool{}}
	return ExternalCiphertext{Handle: string(h), Proof: proof}
}

func (e *MemoryEngine) FromExternal(_ context.Context, ext ExternalCiphertext, w Width) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.slots[Handle(ext.Handle)]
	if !ok || s.proof == "" || !hmac.Equal([]byte(s.proof), []byte(ext.Proof)) {
		return "", ErrInvalidProof
	}
	if s.width != w {
		return "", fmt.Errorf("%w: have %d-bit, want %d-bit", ErrWidthMismatch, s.width, w)
	}
	return Handle(ext.Handle), nil
}

// computedGrants seeds the access list of every handle the engine computes
// itself: the ledger always keeps access to its own results, the way a
// contract keeps access to ciphertexts it produces.
func computedGrants() map[string]bool {
	return map[string]bool{LedgerPrincipal: true}
}

func (e *MemoryEngine) Trivial(_ context.Context, value uint64, w Width) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.newHandle()
	e.slots[h] = &slot{value: value & mask(w), width: w, grants: computedGrants()}
	return h, nil
}

func (e *MemoryEngine) get(h Handle) (*slot, error) {
	s, ok := e.slots[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	return s, nil
}

// wider picks the result width of a mixed-width operation.
func wider(a, b Width) Width {
	if a > b {
		return a
	}
	return b
}

func (e *MemoryEngine) binop(a, b Handle, f func(x, y uint64) uint64) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sa, err := e.get(a)
	if err != nil {
		return "", err
	}
	sb, err := e.get(b)
	if err != nil {
		return "", err
	}
	w := wider(sa.width, sb.width)
	h := e.newHandle()
	e.slots[h] = &slot{value: f(sa.value, sb.value) & mask(w), width: w, grants: computedGrants()}
	return h, nil
}

func (e *MemoryEngine) Add(_ context.Context, a, b Handle) (Handle, error) {
	return e.binop(a, b, func(x, y uint64) uint64 { return x + y })
}

func (e *MemoryEngine) Sub(_ context.Context, a, b Handle) (Handle, error) {
	return e.binop(a, b, func(x, y uint64) uint64 { return x - y })
}

func (e *MemoryEngine) Mul(_ context.Context, a, b Handle) (Handle, error) {
	return e.binop(a, b, func(x, y uint64) uint64 { return x * y })
}

func (e *MemoryEngine) Div(_ context.Context, a, b Handle) (Handle, error) {
	return e.binop(a, b, func(x, y uint64) uint64 {
		if y == 0 {
			return 0
		}
		return x / y
	})
}

func (e *MemoryEngine) compare(a, b Handle, f func(x, y uint64) bool) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sa, err := e.get(a)
	if err != nil {
		return "", err
	}
	sb, err := e.get(b)
	if err != nil {
		return "", err
	}
	var v uint64
	if f(sa.value, sb.value) {
		v = 1
	}
	h := e.newHandle()
	e.slots[h] = &slot{value: v, width: Bits8, grants: computedGrants()}
	return h, nil
}

func (e *MemoryEngine) CompareGE(_ context.Context, a, b Handle) (Handle, error) {
	return e.compare(a, b, func(x, y uint64) bool { return x >= y })
}

func (e *MemoryEngine) CompareGT(_ context.Context, a, b Handle) (Handle, error) {
	return e.compare(a, b, func(x, y uint64) bool { return x > y })
}

func (e *MemoryEngine) CompareLE(_ context.Context, a, b Handle) (Handle, error) {
	return e.compare(a, b, func(x, y uint64) bool { return x <= y })
}

func (e *MemoryEngine) CompareLT(_ context.Context, a, b Handle) (Handle, error) {
	return e.compare(a, b, func(x, y uint64) bool { return x < y })
}

func (e *MemoryEngine) Select(_ context.Context, cond, a, b Handle) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sc, err := e.get(cond)
	if err != nil {
		return "", err
	}
	sa, err := e.get(a)
	if err != nil {
		return "", err
	}
	sb, err := e.get(b)
	if err != nil {
		return "", err
	}
	picked := sb
	if sc.value != 0 {
		picked = sa
	}
	w := wider(sa.width, sb.width)
	h := e.newHandle()
	e.slots[h] = &slot{value: picked.value & mask(w), width: w, grants: computedGrants()}
	return h, nil
}

func (e *MemoryEngine) Grant(_ context.Context, principal string, h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.get(h)
	if err != nil {
		return err
	}
	s.grants[principal] = true
	return nil
}

func (e *MemoryEngine) RequestDecryption(_ context.Context, handles []Handle) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range handles {
		if _, err := e.get(h); err != nil {
			return "", err
		}
	}
	id := uuid.NewString()
	e.pending[id] = append([]Handle(nil), handles...)
	return id, nil
}

// Reveal is the oracle-side decryption of a single handle for an authorized
// principal. The ledger core never calls this.
func (e *MemoryEngine) Reveal(principal string, h Handle) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.get(h)
	if err != nil {
		return 0, err
	}
	if !s.grants[principal] {
		return 0, ErrNotAuthorized
	}
	return s.value, nil
}

// Fulfill resolves a pending decryption request, returning the plaintexts in
// request order. It simulates the asynchronous oracle callback; tests use it
// to play the off-chain decryption authority.
func (e *MemoryEngine) Fulfill(correlationID string) ([]uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	handles, ok := e.pending[correlationID]
	if !ok {
		return nil, fmt.Errorf("no pending decryption request %q", correlationID)
	}
	delete(e.pending, correlationID)
	out := make([]uint64, 0, len(handles))
	for _, h := range handles {
		s, err := e.get(h)
		if err != nil {
			return nil, err
		}
		out = append(out, s.value)
	}
	return out, nil
}
