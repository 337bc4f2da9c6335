package documents

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	"github.com/yungbote/finsights-backend/internal/platform/dbctx"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(dbc dbctx.Context, doc *types.Document) error
	InsertOrIgnore(dbc dbctx.Context, doc *types.Document) (bool, error)
	GetByTranscriptUUID(dbc dbctx.Context, transcriptUUID string) (*types.Document, error)
	GetByPDFURLHash(dbc dbctx.Context, hash string) (*types.Document, error)
	LockByTranscriptUUID(dbc dbctx.Context, transcriptUUID string) (*types.Document, error)
	UpdateIfUnchanged(dbc dbctx.Context, transcriptUUID string, expectStatus types.ProcessingStatus, expectUpdatedAt string, updates map[string]interface{}) (bool, error)
	ListByStatusPage(dbc dbctx.Context, status types.ProcessingStatus, after *types.PageCursor, limit int) ([]*types.Document, error)
	CountByStatus(dbc dbctx.Context) (map[types.ProcessingStatus]int64, error)
	ListCreatedBefore(dbc dbctx.Context, cutoff string, limit int) ([]*types.Document, error)
	DeleteByTranscriptUUIDs(dbc dbctx.Context, ids []string) (int64, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{
		db:  db,
		log: baseLog.With("repo", "DocumentRepo"),
	}
}

func (r *documentRepo) Create(dbc dbctx.Context, doc *types.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	return dbc.DB(r.db).Create(doc).Error
}

// InsertOrIgnore inserts doc unless a row with the same pdf_url_sha256
// already exists. The unique index makes this safe under concurrent
// discovery; the boolean reports whether this call inserted the row.
func (r *documentRepo) InsertOrIgnore(dbc dbctx.Context, doc *types.Document) (bool, error) {
	if doc == nil {
		return false, errors.New("nil document")
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pdf_url_sha256"}},
			DoNothing: true,
		}).
		Create(doc)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *documentRepo) GetByTranscriptUUID(dbc dbctx.Context, transcriptUUID string) (*types.Document, error) {
	var doc types.Document
	err := dbc.DB(r.db).
		Where("transcript_uuid = ?", strings.TrimSpace(transcriptUUID)).
		Take(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetByPDFURLHash(dbc dbctx.Context, hash string) (*types.Document, error) {
	var doc types.Document
	err := dbc.DB(r.db).
		Where("pdf_url_sha256 = ?", strings.TrimSpace(hash)).
		Take(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// LockByTranscriptUUID reads the row with FOR UPDATE. SQLite has no row
// locks; there the write lock is taken by the immediate transaction.
func (r *documentRepo) LockByTranscriptUUID(dbc dbctx.Context, transcriptUUID string) (*types.Document, error) {
	if !dbc.InTx() {
		return nil, errors.New("LockByTranscriptUUID requires a transaction")
	}
	var doc types.Document
	err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transcript_uuid = ?", strings.TrimSpace(transcriptUUID)).
		Take(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateIfUnchanged is the compare-and-swap write: it applies updates only
// while the row still carries the status and updated_at the caller read.
func (r *documentRepo) UpdateIfUnchanged(dbc dbctx.Context, transcriptUUID string, expectStatus types.ProcessingStatus, expectUpdatedAt string, updates map[string]interface{}) (bool, error) {
	if len(updates) == 0 {
		return false, errors.New("no updates")
	}
	res := dbc.DB(r.db).
		Model(&types.Document{}).
		Where("transcript_uuid = ? AND processing_status = ? AND updated_at = ?", transcriptUUID, expectStatus, expectUpdatedAt).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *documentRepo) ListByStatusPage(dbc dbctx.Context, status types.ProcessingStatus, after *types.PageCursor, limit int) ([]*types.Document, error) {
	if limit <= 0 {
		limit = types.DefaultPageSize
	}
	q := dbc.DB(r.db).
		Where("processing_status = ?", status)
	if after != nil {
		q = q.Where(
			"(announcement_date < ? OR (announcement_date = ? AND transcript_uuid < ?))",
			after.AnnouncementDate, after.AnnouncementDate, after.TranscriptUUID,
		)
	}
	var out []*types.Document
	err := q.
		Order("announcement_date DESC").
		Order("transcript_uuid DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) CountByStatus(dbc dbctx.Context) (map[types.ProcessingStatus]int64, error) {
	var rows []struct {
		ProcessingStatus types.ProcessingStatus
		N                int64
	}
	err := dbc.DB(r.db).
		Model(&types.Document{}).
		Select("processing_status, COUNT(*) AS n").
		Group("processing_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[types.ProcessingStatus]int64, len(types.Statuses()))
	for _, s := range types.Statuses() {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.ProcessingStatus] = row.N
	}
	return out, nil
}

// ListCreatedBefore relies on created_at sharing one lexically ordered layout.
func (r *documentRepo) ListCreatedBefore(dbc dbctx.Context, cutoff string, limit int) ([]*types.Document, error) {
	if limit <= 0 {
		limit = types.DefaultPageSize
	}
	var out []*types.Document
	err := dbc.DB(r.db).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Order("transcript_uuid ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) DeleteByTranscriptUUIDs(dbc dbctx.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Where("transcript_uuid IN ?", ids).
		Delete(&types.Document{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
