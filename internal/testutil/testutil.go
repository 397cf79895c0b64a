// Package testutil carries small function-backed test doubles shared across
// usecase and handler tests.
package testutil

import (
	"context"

	"microloan-bazaar/internal/fhe"
	"microloan-bazaar/internal/notify"
)

// RecorderNotifier keeps every emitted notification for assertions.
type RecorderNotifier struct {
	Statuses []notify.StatusChange
	Roles    []notify.RoleChange
}

func (r *RecorderNotifier) LoanStatusChanged(_ context.Context, evt notify.StatusChange) {
	r.Statuses = append(r.Statuses, evt)
}

func (r *RecorderNotifier) RoleChanged(_ context.Context, evt notify.RoleChange) {
	r.Roles = append(r.Roles, evt)
}

// LastTransition returns the most recent status pair, or empty strings.
func (r *RecorderNotifier) LastTransition() (from, to string) {
	if len(r.Statuses) == 0 {
		return "", ""
	}
	last := r.Statuses[len(r.Statuses)-1]
	return last.From, last.To
}

// EngineStub wraps a real engine and lets a test override single calls.
type EngineStub struct {
	fhe.Engine
	FromExternalFn func(ctx context.Context, ext fhe.ExternalCiphertext, w fhe.Width) (fhe.Handle, error)
	RequestFn      func(ctx context.Context, handles []fhe.Handle) (string, error)
}

func (s *EngineStub) FromExternal(ctx context.Context, ext fhe.ExternalCiphertext, w fhe.Width) (fhe.Handle, error) {
	if s.FromExternalFn != nil {
		return s.FromExternalFn(ctx, ext, w)
	}
	return s.Engine.FromExternal(ctx, ext, w)
}

func (s *EngineStub) RequestDecryption(ctx context.Context, handles []fhe.Handle) (string, error) {
	if s.RequestFn != nil {
		return s.RequestFn(ctx, handles)
	}
	return s.Engine.RequestDecryption(ctx, handles)
}
