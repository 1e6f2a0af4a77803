package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/carwash-booking/internal/apperr"
)

// DraftStore keeps in-progress booking selections in Redis under an
// opaque token.  Drafts expire after ttl of inactivity.
type DraftStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDraftStore(rdb *redis.Client, ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &DraftStore{rdb: rdb, ttl: ttl}
}

func draftKey(token string) string { return "draft:" + token }

// Create stores d and returns its token.
func (s *DraftStore) Create(ctx context.Context, d BookingRequest) (string, error) {
	token := uuid.NewString()
	if err := s.put(ctx, token, d); err != nil {
		return "", err
	}
	return token, nil
}

// Get loads a draft.  Unknown and expired tokens are NotFound.
func (s *DraftStore) Get(ctx context.Context, token string) (BookingRequest, error) {
	var d BookingRequest
	if _, err := uuid.Parse(token); err != nil {
		return d, apperr.NotFound("draft not found")
	}
	b, err := s.rdb.Get(ctx, draftKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return d, apperr.NotFound("draft not found")
	}
	if err != nil {
		return d, apperr.Persistence("could not load draft", err)
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return d, apperr.Persistence("could not decode draft", err)
	}
	return d, nil
}

// Merge applies a partial JSON document to a stored draft and refreshes
// its TTL.  Fields absent from patch are left untouched.  The update is
// retried when another request changes the draft concurrently.
func (s *DraftStore) Merge(ctx context.Context, token string, patch []byte, check func(BookingRequest) error) (BookingRequest, error) {
	var out BookingRequest
	key := draftKey(token)
	txf := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperr.NotFound("draft not found")
		}
		if err != nil {
			return err
		}
		var d BookingRequest
		if err := json.Unmarshal(b, &d); err != nil {
			return err
		}
		if err := json.Unmarshal(patch, &d); err != nil {
			return apperr.Validation("invalid draft payload")
		}
		if check != nil {
			if err := check(d); err != nil {
				return err
			}
		}
		nb, err := json.Marshal(d)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, nb, s.ttl)
			return nil
		})
		out = d
		return err
	}
	for i := 0; i < 3; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && apperr.KindOf(err) == apperr.KindInternal {
			return out, apperr.Persistence("could not update draft", err)
		}
		return out, err
	}
	return out, apperr.Conflict("draft was modified concurrently")
}

// Delete discards a draft.  Deleting an unknown draft is not an error.
func (s *DraftStore) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, draftKey(token)).Err(); err != nil {
		return apperr.Persistence("could not delete draft", err)
	}
	return nil
}

func (s *DraftStore) put(ctx context.Context, token string, d BookingRequest) error {
	b, err := json.Marshal(d)
	if err != nil {
		return apperr.Persistence("could not encode draft", err)
	}
	if err := s.rdb.Set(ctx, draftKey(token), b, s.ttl).Err(); err != nil {
		return apperr.Persistence("could not store draft", err)
	}
	return nil
}
