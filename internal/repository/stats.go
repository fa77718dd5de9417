package repository

import (
	"context"
	"fmt"

	"github.com/advocacia-ai/painel/internal/model"
)

// LeadStats aggregates the principal's pipeline in one round trip.
func (r *Repository) LeadStats(ctx context.Context, p model.Principal) (*model.DashboardStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'novo'),
			COUNT(*) FILTER (WHERE status = 'em_andamento'),
			COUNT(*) FILTER (WHERE status = 'fechado'),
			(SELECT COUNT(*) FROM tasks t WHERE t.owner_id = $1 AND NOT t.done),
			(SELECT COUNT(*)
			   FROM conversations c, jsonb_array_elements(c.messages) WITH ORDINALITY AS e(m, ord)
			  WHERE c.owner_id = $1 AND e.m->>'kind' = 'client' AND e.ord > c.client_read_through)
		FROM leads
		WHERE owner_id = $1
	`

	var stats model.DashboardStats
	err := r.pool.QueryRow(ctx, query, p.ID).Scan(
		&stats.TotalLeads,
		&stats.NewLeads,
		&stats.InProgressLeads,
		&stats.ClosedLeads,
		&stats.OpenTasks,
		&stats.UnreadMessages,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute lead stats: %w", err)
	}

	stats.ComputeConversionRate()
	return &stats, nil
}
