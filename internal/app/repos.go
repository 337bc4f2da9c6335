package app

import (
	"gorm.io/gorm"

	repos "github.com/yungbote/finsights-backend/internal/data/repos/documents"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
)

type Repos struct {
	Documents   repos.DocumentRepo
	Transitions repos.DocumentTransitionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Documents:   repos.NewDocumentRepo(db, log),
		Transitions: repos.NewDocumentTransitionRepo(db, log),
	}
}
