package postgres

import (
	"context"
	"fmt"

	"github.com/offerhub/offerhub/pkg/database"
)

// TagRepository implements repository.TagRepository using PostgreSQL.
type TagRepository struct {
	db database.Querier
}

// ReplaceOfferTags swaps the offer's tag set of the given kind for the
// provided IDs. Detach-then-attach: tags removed from the campaign disappear
// from the offer too.
func (r *TagRepository) ReplaceOfferTags(ctx context.Context, offerID, kind string, tagIDs []string) error {
	deleteQuery := `DELETE FROM offer_tags WHERE offer_id = $1 AND kind = $2`
	if _, err := r.db.Exec(ctx, deleteQuery, offerID, kind); err != nil {
		return fmt.Errorf("detach offer tags: %w", err)
	}

	if len(tagIDs) == 0 {
		return nil
	}

	insertQuery := `
		INSERT INTO offer_tags (offer_id, tag_id, kind)
		SELECT $1, unnest($2::uuid[]), $3
		ON CONFLICT (offer_id, tag_id, kind) DO NOTHING`
	if _, err := r.db.Exec(ctx, insertQuery, offerID, tagIDs, kind); err != nil {
		return fmt.Errorf("attach offer tags: %w", err)
	}

	return nil
}

// ListOfferTagIDs returns the offer's tag ids of the given kind.
func (r *TagRepository) ListOfferTagIDs(ctx context.Context, offerID, kind string) ([]string, error) {
	query := `SELECT tag_id FROM offer_tags WHERE offer_id = $1 AND kind = $2 ORDER BY tag_id`

	rows, err := r.db.Query(ctx, query, offerID, kind)
	if err != nil {
		return nil, fmt.Errorf("list offer tag ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tag id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag ids: %w", err)
	}

	return ids, nil
}
