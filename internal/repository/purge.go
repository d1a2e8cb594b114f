// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"
)

// purgeTables lists the soft-deleted tables in child-before-parent order so
// foreign keys stay satisfied while purging.
var purgeTables = []string{"checkins", "tokens", "visitors", "locations", "users"}

// PurgeSoftDeleted hard-deletes rows whose soft-delete stamp is older than
// the cutoff. This is the single escape hatch from the soft-delete policy;
// everything younger than the retention window stays recoverable.
func (r *Repository) PurgeSoftDeleted(ctx context.Context, olderThan time.Time) (map[string]int64, error) {
	purged := make(map[string]int64, len(purgeTables))
	for _, table := range purgeTables {
		res, err := r.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE deleted_at IS NOT NULL AND deleted_at < ?`, table),
			olderThan)
		if err != nil {
			return purged, wrapError(err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return purged, err
		}
		purged[table] = count
	}
	return purged, nil
}
