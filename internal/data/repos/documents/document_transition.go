package documents

import (
	"gorm.io/gorm"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	"github.com/yungbote/finsights-backend/internal/platform/dbctx"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
)

type DocumentTransitionRepo interface {
	Create(dbc dbctx.Context, rows []*types.DocumentTransition) error
	ListByTranscriptUUID(dbc dbctx.Context, transcriptUUID string, limit int) ([]*types.DocumentTransition, error)
	DeleteByTranscriptUUIDs(dbc dbctx.Context, ids []string) (int64, error)
}

type documentTransitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentTransitionRepo(db *gorm.DB, baseLog *logger.Logger) DocumentTransitionRepo {
	return &documentTransitionRepo{
		db:  db,
		log: baseLog.With("repo", "DocumentTransitionRepo"),
	}
}

func (r *documentTransitionRepo) Create(dbc dbctx.Context, rows []*types.DocumentTransition) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&rows).Error
}

// ListByTranscriptUUID returns the trail oldest first. IDs are UUIDv7 so
// they sort by creation even within one timestamp second.
func (r *documentTransitionRepo) ListByTranscriptUUID(dbc dbctx.Context, transcriptUUID string, limit int) ([]*types.DocumentTransition, error) {
	if limit <= 0 {
		limit = types.DefaultPageSize
	}
	var out []*types.DocumentTransition
	err := dbc.DB(r.db).
		Where("transcript_uuid = ?", transcriptUUID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentTransitionRepo) DeleteByTranscriptUUIDs(dbc dbctx.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Where("transcript_uuid IN ?", ids).
		Delete(&types.DocumentTransition{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
