package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"estekhdam/internal/cases/models"
	reviewmodels "estekhdam/internal/review/models"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/textnorm"
)

type Dashboard struct {
	Query string
	Rows  []models.DashboardRow
	Stats reviewmodels.Stats
}

// Dashboard lists cases matching query, newest first, alongside the review
// rollups. The case list and the three rollups are fetched concurrently.
func (s *Service) Dashboard(ctx context.Context, query string) (*Dashboard, error) {
	ctx, span := s.startSpan(ctx, "cases.Dashboard")
	defer span.End()

	q := textnorm.Query(query)
	out := &Dashboard{Query: q}
	var cases []models.HiringCase

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cases, err = s.cases.List(gctx, models.Filter{Query: q})
		return err
	})
	g.Go(func() error {
		var err error
		out.Stats.Documents, err = s.reviews.DocumentRollup(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Stats.Videos, err = s.reviews.VideoRollup(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Stats.Physical, err = s.reviews.PhysicalRollup(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dashboard")
	}

	ids := make([]id.CaseID, len(cases))
	for i, c := range cases {
		ids[i] = c.ID
	}
	presence, err := s.reviews.Presence(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load review presence")
	}
	out.Rows = make([]models.DashboardRow, len(cases))
	for i, c := range cases {
		p := presence[c.ID]
		out.Rows[i] = models.DashboardRow{
			Case:        c,
			HasDocs:     p.Documents > 0,
			HasVideo:    p.Videos > 0,
			HasPhysical: p.Physical > 0,
		}
	}
	return out, nil
}
