package tableapi

import (
	"context"
	"strings"
)

const valuesPageLimit = 100

// Values collects the string field of data across every row of table,
// following pages until a short page is returned. A page that starts with
// the same row as the previous one ends the walk too, so a server that
// ignores paging cannot loop it forever. Empty values are skipped.
func (c *Client) Values(ctx context.Context, table, field string) ([]string, error) {
	var (
		out       []string
		prevFirst string
	)
	for page := 0; ; page++ {
		rows, err := c.Rows(ctx, table, Query{Page: page, Limit: valuesPageLimit})
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			if page > 0 && rows[0].ID != "" && rows[0].ID == prevFirst {
				return out, nil
			}
			prevFirst = rows[0].ID
		}
		for _, row := range rows {
			if value, ok := row.Data[field].(string); ok {
				if value = strings.TrimSpace(value); value != "" {
					out = append(out, value)
				}
			}
		}
		if len(rows) < valuesPageLimit {
			return out, nil
		}
	}
}
