// Package notify emits the status-change notifications every lifecycle
// transition carries.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type StatusChange struct {
	LoanID string    `json:"loan_id"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	At     time.Time `json:"at"`
}

type RoleChange struct {
	PrincipalID string    `json:"principal_id"`
	Role        string    `json:"role"`
	Granted     bool      `json:"granted"`
	At          time.Time `json:"at"`
}

type Notifier interface {
	LoanStatusChanged(ctx context.Context, evt StatusChange)
	RoleChanged(ctx context.Context, evt RoleChange)
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

func (LogNotifier) LoanStatusChanged(_ context.Context, evt StatusChange) {
	log.Printf("loan %s: %s -> %s", evt.LoanID, evt.From, evt.To)
}

func (LogNotifier) RoleChanged(_ context.Context, evt RoleChange) {
	verb := "revoked"
	if evt.Granted {
		verb = "granted"
	}
	log.Printf("role %s %s for %s", evt.Role, verb, evt.PrincipalID)
}

const (
	statusChannel = "loan.status"
	roleChannel   = "loan.roles"
)

// RedisNotifier publishes notifications on redis pub/sub channels. Publish
// failures are logged, never surfaced: a notification must not abort the
// transaction that produced it.
type RedisNotifier struct{ rdb *redis.Client }

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier { return &RedisNotifier{rdb: rdb} }

func (n *RedisNotifier) LoanStatusChanged(ctx context.Context, evt StatusChange) {
	payload, _ := json.Marshal(evt)
	if err := n.rdb.Publish(ctx, statusChannel, payload).Err(); err != nil {
		log.Printf("notify: publish %s: %v", statusChannel, err)
	}
}

func (n *RedisNotifier) RoleChanged(ctx context.Context, evt RoleChange) {
	payload, _ := json.Marshal(evt)
	if err := n.rdb.Publish(ctx, roleChannel, payload).Err(); err != nil {
		log.Printf("notify: publish %s: %v", roleChannel, err)
	}
}

// Fanout forwards each notification to every wrapped notifier.
type Fanout []Notifier

func (f Fanout) LoanStatusChanged(ctx context.Context, evt StatusChange) {
	for _, n := range f {
		n.LoanStatusChanged(ctx, evt)
	}
}

func (f Fanout) RoleChanged(ctx context.Context, evt RoleChange) {
	for _, n := range f {
		n.RoleChanged(ctx, evt)
	}
}

// Nop drops everything; tests use it.
type Nop struct{}

func (Nop) LoanStatusChanged(context.Context, StatusChange) {}
func (Nop) RoleChanged(context.Context, RoleChange)         {}
