package documents

import "context"

// Store is the record store contract collaborators program against. The
// SQL implementation lives in data/aggregates and an in-memory one in
// data/memstore.
//
// Errors carry one of the ErrorCode values: constraint_violation,
// not_found, invalid_status, illegal_transition, conflict, busy.
type Store interface {
	Create(ctx context.Context, in NewDocument) (*Document, error)
	// CreateIfAbsent inserts unless pdf_url_sha256 is taken, in which case it
	// returns the existing record and false.
	CreateIfAbsent(ctx context.Context, in NewDocument) (*Document, bool, error)
	Get(ctx context.Context, transcriptUUID string) (*Document, error)
	FindByHash(ctx context.Context, pdfURLSHA256 string) (*Document, error)
	Transition(ctx context.Context, transcriptUUID string, to ProcessingStatus, fields TransitionFields) (*TransitionResult, error)
	RecordInsights(ctx context.Context, transcriptUUID, fileName, createdAt string) (*TransitionResult, error)
	ListByStatusPage(ctx context.Context, status ProcessingStatus, after *PageCursor, limit int) ([]*Document, error)
	CountByStatus(ctx context.Context) (map[ProcessingStatus]int64, error)
	History(ctx context.Context, transcriptUUID string, limit int) ([]*DocumentTransition, error)
	ListCreatedBefore(ctx context.Context, cutoff string, limit int) ([]*Document, error)
	Delete(ctx context.Context, transcriptUUIDs []string) (int64, error)
}

type TransitionResult struct {
	Document *Document
	From     ProcessingStatus
	To       ProcessingStatus
	Kind     TransitionKind
}

// NewTransitionRecord builds the audit row for a persisted transition.
func NewTransitionRecord(id string, tr *Transition) *DocumentTransition {
	return &DocumentTransition{
		ID:             id,
		TranscriptUUID: tr.Next.TranscriptUUID,
		FromStatus:     tr.From,
		ToStatus:       tr.To,
		Kind:           tr.Kind,
		Fields:         tr.Fields.JSON(),
		ErrorMessage:   cloneStr(tr.Next.ErrorMessage),
		CreatedAt:      tr.Next.UpdatedAt,
	}
}
