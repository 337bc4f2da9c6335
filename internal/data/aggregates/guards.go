package aggregates

import (
	"strings"

	repos "github.com/yungbote/finsights-backend/internal/data/repos/documents"
	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	"github.com/yungbote/finsights-backend/internal/platform/dbctx"
)

// CASGuard writes a planned document only if the row still matches what
// the plan was computed from.
type CASGuard struct {
	docs repos.DocumentRepo
}

func NewCASGuard(docs repos.DocumentRepo) CASGuard {
	return CASGuard{docs: docs}
}

// Apply persists tr.Next guarded by the prior status and updated_at.
func (g CASGuard) Apply(dbc dbctx.Context, prior *types.Document, tr *types.Transition) error {
	if g.docs == nil {
		return types.NewError(types.CodeInternal, "aggregate.cas", "cas guard has no repo", nil)
	}
	ok, err := g.docs.UpdateIfUnchanged(dbc, prior.TranscriptUUID, prior.ProcessingStatus, prior.UpdatedAt, tr.Next.MutableColumns())
	if err != nil {
		return err
	}
	return RequireCASSuccess(ok, "document "+prior.TranscriptUUID+" changed concurrently")
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}
