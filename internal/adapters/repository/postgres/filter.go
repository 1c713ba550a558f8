package postgres

import (
	"fmt"
	"strings"
	"transferhub/internal/core/domain"

	"github.com/lib/pq"
)

// buildSessionFilter turns a filter into a WHERE clause with positional arguments starting at $1
func buildSessionFilter(filter domain.SessionFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.TenantID != "" {
		add("tenant_id = $%d", filter.TenantID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	if filter.Kind != "" {
		add("kind = $%d", string(filter.Kind))
	}
	if filter.CreatedAfter != nil {
		add("created_at > $%d", filter.CreatedAfter.UTC())
	}
	if filter.CreatedBefore != nil {
		add("created_at < $%d", filter.CreatedBefore.UTC())
	}
	if filter.ExpiresBefore != nil {
		add("expires_at < $%d", filter.ExpiresBefore.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
