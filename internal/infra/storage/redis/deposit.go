package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/gabapcia/depositwatch/internal/deposittrack"

	"github.com/redis/go-redis/v9"
)

const depositKeyPrefix = "deposit"

// depositKey holds the JSON document. Format: "deposit:{blockchain}:{network}:{hash}"
func depositKey(blockchain, network, hash string) string {
	return fmt.Sprintf("%s:%s:%s:%s", depositKeyPrefix, blockchain, network, hash)
}

// depositIndexKey scores deposit keys by block timestamp.
// Format: "deposit:index:{blockchain}:{network}:{token}"
func depositIndexKey(blockchain, network, token string) string {
	return fmt.Sprintf("%s:index:%s:%s:%s", depositKeyPrefix, blockchain, network, token)
}

// depositBlocksKey scores deposit keys by block number across every chain.
func depositBlocksKey() string {
	return depositKeyPrefix + ":blocks"
}

// upsertScript writes the document only if it is new and indexes it in the same step.
var upsertScript = redis.NewScript(`
if redis.call("SET", KEYS[1], ARGV[1], "NX") then
	redis.call("ZADD", KEYS[2], ARGV[2], KEYS[1])
	redis.call("ZADD", KEYS[3], ARGV[3], KEYS[1])
	return 1
end
return 0
`)

var _ deposittrack.DepositStore = (*Store)(nil)

// Upsert implements deposittrack.DepositStore.
func (s *Store) Upsert(ctx context.Context, d deposittrack.Deposit) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}

	keys := []string{
		depositKey(d.Blockchain, d.Network, d.Hash),
		depositIndexKey(d.Blockchain, d.Network, d.Token),
		depositBlocksKey(),
	}
	return upsertScript.Run(ctx, s.conn, keys, payload, d.BlockTimestamp, d.BlockNumber).Err()
}

// LatestStoredBlockNumber implements deposittrack.DepositStore.
func (s *Store) LatestStoredBlockNumber(ctx context.Context) (uint64, bool, error) {
	top, err := s.conn.ZRevRangeWithScores(ctx, depositBlocksKey(), 0, 0).Result()
	if err != nil {
		return 0, false, err
	}

	if len(top) == 0 {
		return 0, false, nil
	}
	return uint64(top[0].Score), true, nil
}

// Query implements deposittrack.DepositStore. Deposits come back ordered by block.
func (s *Store) Query(ctx context.Context, blockchain, network, token string, minBlockTimestamp *time.Time) ([]deposittrack.Deposit, error) {
	lowest := "-inf"
	if minBlockTimestamp != nil {
		lowest = strconv.FormatInt(minBlockTimestamp.Unix(), 10)
	}

	keys, err := s.conn.ZRangeByScore(ctx, depositIndexKey(blockchain, network, token), &redis.ZRangeBy{
		Min: lowest,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return []deposittrack.Deposit{}, nil
	}

	values, err := s.conn.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	deposits := make([]deposittrack.Deposit, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}

		var d deposittrack.Deposit
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		deposits = append(deposits, d)
	}

	slices.SortFunc(deposits, func(a, b deposittrack.Deposit) int {
		return cmp.Or(cmp.Compare(a.BlockNumber, b.BlockNumber), cmp.Compare(a.Hash, b.Hash))
	})
	return deposits, nil
}
