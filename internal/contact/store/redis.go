package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"agenda/internal/contact/models"
	"agenda/pkg/platform/sentinel"
)

// Redis persists contacts as one hash per contact plus a phone claim key.
//
// Keys:
//
//	agenda:contact:<id>     hash with the contact fields
//	agenda:phone:<telefono> the id owning that phone number (uniqueness claim)
//	agenda:contacts         set of all contact ids, drives FindAll
//
// Uniqueness is enforced by claiming the phone key with SETNX before the hash
// is written; updates re-claim under WATCH so concurrent writers cannot race
// past each other.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

const (
	contactKeyPrefix = "agenda:contact:"
	phoneKeyPrefix   = "agenda:phone:"
	contactSetKey    = "agenda:contacts"
)

func contactKey(id string) string     { return contactKeyPrefix + id }
func phoneKey(telefono string) string { return phoneKeyPrefix + telefono }

func (s *Redis) FindByID(ctx context.Context, id string) (models.Contact, error) {
	vals, err := s.rdb.HGetAll(ctx, contactKey(id)).Result()
	if err != nil {
		return models.Contact{}, fmt.Errorf("find contact: %w", err)
	}
	if len(vals) == 0 {
		return models.Contact{}, sentinel.ErrNotFound
	}
	return contactFromHash(id, vals), nil
}

func (s *Redis) FindAll(ctx context.Context) ([]models.Contact, error) {
	ids, err := s.rdb.SMembers(ctx, contactSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list contact ids: %w", err)
	}
	out := make([]models.Contact, 0, len(ids))
	for _, id := range ids {
		vals, err := s.rdb.HGetAll(ctx, contactKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("load contact %s: %w", id, err)
		}
		if len(vals) == 0 {
			// Id set and hash can drift if a delete is interrupted; skip
			// rather than surface a phantom record.
			continue
		}
		out = append(out, contactFromHash(id, vals))
	}
	return out, nil
}

func (s *Redis) Insert(ctx context.Context, c models.Contact) (string, error) {
	c.ID = uuid.NewString()

	claimed, err := s.rdb.SetNX(ctx, phoneKey(c.Telefono), c.ID, 0).Result()
	if err != nil {
		return "", fmt.Errorf("claim phone: %w", err)
	}
	if !claimed {
		return "", sentinel.ErrAlreadyUsed
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, contactKey(c.ID), hashFromContact(c))
		pipe.SAdd(ctx, contactSetKey, c.ID)
		return nil
	})
	if err != nil {
		// Release the claim so the phone is not orphaned.
		s.rdb.Del(ctx, phoneKey(c.Telefono))
		return "", fmt.Errorf("store contact: %w", err)
	}
	return c.ID, nil
}

func (s *Redis) DeleteByID(ctx context.Context, id string) (int, error) {
	removed := 0
	key := contactKey(id)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		telefono, err := tx.HGet(ctx, key, "telefono").Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.Del(ctx, phoneKey(telefono))
			pipe.SRem(ctx, contactSetKey, id)
			return nil
		})
		if err == nil {
			removed = 1
		}
		return err
	}, key)
	if err != nil {
		return 0, fmt.Errorf("delete contact: %w", err)
	}
	return removed, nil
}

func (s *Redis) FindAndUpdate(ctx context.Context, id string, upd models.Update) (models.Contact, error) {
	var updated models.Contact
	key := contactKey(id)

	// Watch the contact hash and, when the phone changes, the new phone
	// claim. If either moves under us the transaction aborts and retries.
	watched := []string{key}
	if upd.Phone != nil {
		watched = append(watched, phoneKey(upd.Phone.Telefono))
	}

	txf := func(tx *redis.Tx) error {
		vals, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(vals) == 0 {
			return sentinel.ErrNotFound
		}
		c := contactFromHash(id, vals)
		oldPhone := c.Telefono

		if upd.Phone != nil && upd.Phone.Telefono != oldPhone {
			owner, err := tx.Get(ctx, phoneKey(upd.Phone.Telefono)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil && owner != id {
				return sentinel.ErrAlreadyUsed
			}
		}

		upd.Apply(&c)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, hashFromContact(c))
			if c.Telefono != oldPhone {
				pipe.Del(ctx, phoneKey(oldPhone))
				pipe.Set(ctx, phoneKey(c.Telefono), id, 0)
			}
			return nil
		})
		if err != nil {
			return err
		}
		updated = c
		return nil
	}

	// A concurrent writer invalidates the WATCH; retry a few times before
	// reporting the store as unavailable.
	for attempt := 0; attempt < 5; attempt++ {
		err := s.rdb.Watch(ctx, txf, watched...)
		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrAlreadyUsed):
			return models.Contact{}, err
		default:
			return models.Contact{}, fmt.Errorf("update contact: %w", err)
		}
	}
	return models.Contact{}, fmt.Errorf("update contact: %w", sentinel.ErrUnavailable)
}

func contactFromHash(id string, vals map[string]string) models.Contact {
	return models.Contact{
		ID:          id,
		Nombre:      vals["nombre"],
		Telefono:    vals["telefono"],
		Pais:        vals["pais"],
		ISO2:        vals["iso2"],
		Capital:     vals["capital"],
		HoraCapital: vals["hora_capital"],
	}
}

func hashFromContact(c models.Contact) map[string]any {
	return map[string]any{
		"nombre":       c.Nombre,
		"telefono":     c.Telefono,
		"pais":         c.Pais,
		"iso2":         c.ISO2,
		"capital":      c.Capital,
		"hora_capital": c.HoraCapital,
	}
}
