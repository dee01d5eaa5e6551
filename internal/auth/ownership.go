package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/isdelr/blogpost-be/internal/apperr"
	"github.com/isdelr/blogpost-be/internal/database"
)

// CheckOwnership runs ownerQuery for resourceID and compares the owner with the caller.
// ownerQuery must select the owner's id and current token of a live resource. Run it on the
// transaction that performs the mutation so the check and the write cannot interleave with
// another session.
func CheckOwnership(ctx context.Context, q database.DBTX, ownerQuery, resourceID string, id Identity, notFound error) error {
	var ownerID string
	var ownerToken sql.NullString
	err := q.QueryRowContext(ctx, ownerQuery, resourceID).Scan(&ownerID, &ownerToken)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	if err != nil {
		return apperr.Internal(err)
	}
	if ownerID != id.UserID || !ownerToken.Valid || ownerToken.String != id.Token {
		return apperr.Unauthorized()
	}
	return nil
}
