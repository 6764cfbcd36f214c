package store

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/flogger/internal/client/models"
	"github.com/dmitrijs2005/flogger/internal/client/templates"
	"github.com/dmitrijs2005/flogger/internal/common"
)

// Seed creates every template whose path is not among present, comparing
// paths case-insensitively, and returns the documents it created. Create
// failures are logged and skipped; a conflict means another device seeded
// the same template first.
func (s *Store) Seed(ctx context.Context, present []*models.Document, ts []templates.Template) []*models.Document {
	found := make(map[string]bool, len(present))
	for _, d := range present {
		found[d.Key()] = true
	}

	var created []*models.Document
	for _, t := range ts {
		key := models.PathKey(t.Path)
		if found[key] {
			continue
		}
		found[key] = true

		rev, err := s.Create(ctx, t.Path, t.Content)
		if err != nil {
			if errors.Is(err, common.ErrVersionConflict) {
				s.log.Debug(ctx, "template already present", "path", t.Path)
			} else {
				s.log.Warn(ctx, "seed template", "path", t.Path, "err", err)
			}
			continue
		}
		s.log.Info(ctx, "seeded template", "path", t.Path)
		created = append(created, &models.Document{
			Path:     models.NormalizePath(t.Path),
			Revision: rev,
			ReadOnly: true,
		})
	}
	return created
}
