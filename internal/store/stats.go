package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LabelStats aggregates the thoughts of one label.
type LabelStats struct {
	Label string `json:"label"`
	Total int    `json:"total"`
	Done  int    `json:"done"`
	// AvgDaysToDone is the mean time between creation and completion of the
	// label's done thoughts, 0 when none are done.
	AvgDaysToDone float64 `json:"avg_days_to_done"`
}

// Stats summarizes the thoughts created since a point in time.
type Stats struct {
	Since    time.Time      `json:"since"`
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	Labels   []LabelStats   `json:"labels"`
}

// Stats aggregates thoughts created after since; a zero since covers all
// of them. Labels are ordered by total, largest first, then by name.
func (s *Store) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	sinceStr := ""
	if !since.IsZero() {
		sinceStr = since.UTC().Format(timeLayout)
	}

	st := &Stats{Since: since, ByStatus: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM thoughts WHERE created_at > ? GROUP BY status`, sinceStr)
	if err != nil {
		return nil, fmt.Errorf("stats by status: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		st.ByStatus[status] = n
		st.Total += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats by status: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT CASE WHEN label = '' THEN 'unlabelled' ELSE label END AS l,
		        COUNT(*),
		        SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
		        AVG(CASE WHEN status = ? AND completed_at IS NOT NULL
		                 THEN julianday(completed_at) - julianday(created_at) END)
		 FROM thoughts
		 WHERE created_at > ?
		 GROUP BY l
		 ORDER BY COUNT(*) DESC, l ASC`,
		StatusDone, StatusDone, sinceStr)
	if err != nil {
		return nil, fmt.Errorf("stats by label: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ls LabelStats
		var avg sql.NullFloat64
		if err := rows.Scan(&ls.Label, &ls.Total, &ls.Done, &avg); err != nil {
			return nil, fmt.Errorf("scan label stats: %w", err)
		}
		if avg.Valid {
			ls.AvgDaysToDone = avg.Float64
		}
		st.Labels = append(st.Labels, ls)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats by label: %w", err)
	}
	return st, nil
}
