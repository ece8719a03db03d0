// redis.go - Save slots in Redis
package savefile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"stat-attack/economy"
)

// RedisStore keeps each slot under "<prefix>save:<slot>" with no expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	rules  economy.Rules
}

func NewRedisStore(client *redis.Client, prefix string, r economy.Rules) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, rules: r}
}

func (s *RedisStore) key(slot string) string {
	return s.prefix + "save:" + slot
}

func (s *RedisStore) Save(ctx context.Context, slot string, st economy.State) error {
	if err := ValidSlot(slot); err != nil {
		return err
	}
	data, err := Encode(st, s.rules)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(slot), data, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, slot string) (economy.State, error) {
	if err := ValidSlot(slot); err != nil {
		return economy.State{}, err
	}
	data, err := s.client.Get(ctx, s.key(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return economy.State{}, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return economy.State{}, fmt.Errorf("load %s: %w", slot, err)
	}
	return Decode(data, s.rules)
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	slots := []string{}
	iter := s.client.Scan(ctx, 0, s.key("*"), 100).Iterator()
	for iter.Next(ctx) {
		slots = append(slots, strings.TrimPrefix(iter.Val(), s.key("")))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	sort.Strings(slots)
	return slots, nil
}

func (s *RedisStore) Delete(ctx context.Context, slot string) error {
	if err := ValidSlot(slot); err != nil {
		return err
	}
	n, err := s.client.Del(ctx, s.key(slot)).Result()
	if err != nil {
		return fmt.Errorf("delete %s: %w", slot, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return nil
}
