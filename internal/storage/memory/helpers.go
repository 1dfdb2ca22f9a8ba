package memory

import (
	"strings"

	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

// containsFold reports whether any field contains query, ignoring case
func containsFold(query string, fields ...string) bool {
	q := strings.ToLower(query)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func paginate[T any](all []T, params postgres.PaginationParams) postgres.Page[T] {
	params = params.Normalize()
	total := int64(len(all))

	start := min(params.Offset(), len(all))
	end := min(start+params.PageSize, len(all))
	return postgres.NewPage(all[start:end], total, params)
}
