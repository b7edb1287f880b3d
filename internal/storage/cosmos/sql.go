package cosmos

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/canalwatch/icewatch/internal/storage"
)

const (
	selectAll    = "SELECT * FROM c"
	selectStatus = "SELECT c.id, c.location, c.safetyStatus, c.windowEndTime FROM c"
)

// BuildQuery renders q as parameterized Cosmos SQL. pushedDown reports
// whether ordering and limit are part of the SQL; when false the caller must
// apply them in memory.
func BuildQuery(q storage.Query, crossPartition bool) (sql string, params []azcosmos.QueryParameter, pushedDown bool) {
	pushedDown = q.Location != "" && !crossPartition

	var b strings.Builder
	b.WriteString("SELECT ")
	if pushedDown && q.Limit > 0 {
		b.WriteString("TOP @limit ")
		params = append(params, azcosmos.QueryParameter{Name: "@limit", Value: q.Limit})
	}
	if q.StatusOnly {
		b.WriteString(strings.TrimPrefix(selectStatus, "SELECT "))
	} else {
		b.WriteString(strings.TrimPrefix(selectAll, "SELECT "))
	}

	if q.Location != "" {
		b.WriteString(" WHERE c.location = @location")
		params = append(params, azcosmos.QueryParameter{Name: "@location", Value: q.Location})
	}

	if pushedDown {
		if q.Descending {
			b.WriteString(" ORDER BY c.windowEndTime DESC")
		} else {
			b.WriteString(" ORDER BY c.windowEndTime ASC")
		}
	}

	return b.String(), params, pushedDown
}
