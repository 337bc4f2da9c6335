package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	"github.com/yungbote/finsights-backend/internal/platform/dbctx"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
)

type BaseDeps struct {
	DB          *gorm.DB
	Log         *logger.Logger
	Runner      TxRunner
	Hooks       Hooks
	LockTimeout time.Duration
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB, d.LockTimeout)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		switch types.CodeOf(mapped) {
		case types.CodeConflict:
			deps.Hooks.IncConflict(op)
		case types.CodeBusy:
			deps.Hooks.IncBusy(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(types.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(types.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
