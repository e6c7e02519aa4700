/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PutThumbnail upserts the PNG preview of a snapshot and evicts the least
// recently used previews until the cache fits its byte cap.
func (c *Catalog) PutThumbnail(ctx context.Context, snapshotID string, w, h int, png []byte) error {
	now := time.Now()
	_, err := c.db.ExecContext(ctx, `INSERT INTO thumbnails(snapshot_id, w, h, png, size, updated_at, last_access)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(snapshot_id) DO UPDATE SET w=excluded.w, h=excluded.h, png=excluded.png, size=excluded.size,
			updated_at=excluded.updated_at, last_access=excluded.last_access`,
		snapshotID, w, h, png, len(png), now.UTC().Format(time.RFC3339Nano), now.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert thumbnail: %w", err)
	}
	return c.EvictToFit(ctx, c.maxBytes)
}

// Thumbnail returns the stored PNG of a snapshot and marks it used.
// It returns nil, nil when there is none.
func (c *Catalog) Thumbnail(ctx context.Context, snapshotID string) ([]byte, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT png FROM thumbnails WHERE snapshot_id = ?`, snapshotID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thumbnail: %w", err)
	}
	_, _ = c.db.ExecContext(ctx, `UPDATE thumbnails SET last_access=? WHERE snapshot_id=?`, time.Now().UnixNano(), snapshotID)
	return blob, nil
}

// EvictToFit deletes least recently used thumbnails until the total size is <= capBytes.
func (c *Catalog) EvictToFit(ctx context.Context, capBytes int64) error {
	total, err := c.TotalThumbnailBytes(ctx)
	if err != nil {
		return err
	}
	if capBytes <= 0 || total <= capBytes {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT snapshot_id, size FROM thumbnails ORDER BY last_access ASC, rowid ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() {
		var id string
		var sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Close the cursor before writing: the pool has a single connection.
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM thumbnails WHERE snapshot_id IN (` + placeholders(len(victims)) + `)`
	if _, err := c.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// TotalThumbnailBytes is the summed size of all stored thumbnails.
func (c *Catalog) TotalThumbnailBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbnails`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum thumbnails size: %w", err)
	}
	return total, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
