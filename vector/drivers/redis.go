package drivers

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/viant/mlvec/vector"
	"github.com/viant/mlvec/version"
)

const (
	// Redis key prefix for records
	redisKeyPrefix = "mlvec:"
	// SSCAN batch size used while scanning a set
	redisScanCount = 256
)

// RedisStore implements vector.Store using Redis. Layout:
//
//	mlvec:<ns>                 SET of set names holding records
//	mlvec:<ns>:<set>           SET of user keys in the set
//	mlvec:<ns>:<set>:<key>     HASH of bin name to vector blob
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-based record store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put implements vector.Store.
func (s *RedisStore) Put(ctx context.Context, rec vector.Record) error {
	rec, err := vector.PrepareRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.namespaceKey(rec.Key.Namespace), rec.Key.Set)
		pipe.SAdd(ctx, s.setKey(rec.Key.Namespace, rec.Key.Set), rec.Key.UserKey)
		pipe.HSet(ctx, s.recordKey(rec.Key), rec.Bin, rec.Blob)
		return nil
	})
	return err
}

// Get implements vector.Store.
// Returns nil if the record is not found (not an error).
func (s *RedisStore) Get(ctx context.Context, key vector.Key, bin string) (*vector.Record, error) {
	blob, err := s.client.HGet(ctx, s.recordKey(key), bin).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vector.Record{Key: key, Digest: vector.ComputeDigest(key), Bin: bin, Blob: blob}, nil
}

// Remove implements vector.Store.
func (s *RedisStore) Remove(ctx context.Context, key vector.Key) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.recordKey(key))
		pipe.SRem(ctx, s.setKey(key.Namespace, key.Set), key.UserKey)
		return nil
	})
	return err
}

// Scan implements vector.Store. Bins of one record are visited in name
// order; the order of records is the order Redis returns them in.
func (s *RedisStore) Scan(ctx context.Context, namespace, set string, fn func(vector.Record) bool) error {
	sets := []string{set}
	if set == "" {
		var err error
		if sets, err = s.client.SMembers(ctx, s.namespaceKey(namespace)).Result(); err != nil {
			return err
		}
		sort.Strings(sets)
	}
	for _, setName := range sets {
		more, err := s.scanSet(ctx, namespace, setName, fn)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

func (s *RedisStore) scanSet(ctx context.Context, namespace, set string, fn func(vector.Record) bool) (bool, error) {
	var cursor uint64
	seen := make(map[string]struct{})
	for {
		userKeys, next, err := s.client.SScan(ctx, s.setKey(namespace, set), cursor, "", redisScanCount).Result()
		if err != nil {
			return false, err
		}
		for _, userKey := range unseen(seen, userKeys) {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			key := vector.Key{Namespace: namespace, Set: set, UserKey: userKey}
			bins, err := s.client.HGetAll(ctx, s.recordKey(key)).Result()
			if err != nil {
				return false, err
			}
			names := make([]string, 0, len(bins))
			for name := range bins {
				names = append(names, name)
			}
			sort.Strings(names)
			digest := vector.ComputeDigest(key)
			for _, name := range names {
				rec := vector.Record{Key: key, Digest: digest, Bin: name, Blob: []byte(bins[name])}
				if !fn(rec) {
					return false, nil
				}
			}
		}
		if next == 0 {
			return true, nil
		}
		cursor = next
	}
}

// unseen returns the keys not yet in seen and records them. SSCAN may return
// a member more than once.
func unseen(seen map[string]struct{}, keys []string) []string {
	out := keys[:0:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Truncate deletes every record in namespace and set; an empty set clears
// the whole namespace. It returns the number of user keys deleted.
func (s *RedisStore) Truncate(ctx context.Context, namespace, set string) (int64, error) {
	sets := []string{set}
	if set == "" {
		var err error
		if sets, err = s.client.SMembers(ctx, s.namespaceKey(namespace)).Result(); err != nil {
			return 0, err
		}
	}
	var removed int64
	for _, setName := range sets {
		userKeys, err := s.client.SMembers(ctx, s.setKey(namespace, setName)).Result()
		if err != nil {
			return removed, err
		}
		keys := make([]string, 0, len(userKeys)+1)
		for _, userKey := range userKeys {
			keys = append(keys, s.recordKey(vector.Key{Namespace: namespace, Set: setName, UserKey: userKey}))
		}
		keys = append(keys, s.setKey(namespace, setName))
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return removed, err
		}
		if err := s.client.SRem(ctx, s.namespaceKey(namespace), setName).Err(); err != nil {
			return removed, err
		}
		removed += int64(len(userKeys))
	}
	return removed, nil
}

// ServerVersion implements vector.Versioned using the redis_version field
// of INFO server.
func (s *RedisStore) ServerVersion(ctx context.Context) (version.Version, error) {
	info, err := s.client.Info(ctx, "server").Result()
	if err != nil {
		return version.Version{}, err
	}
	return parseRedisVersion(info)
}

func parseRedisVersion(info string) (version.Version, error) {
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		value, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "redis_version:")
		if !ok {
			continue
		}
		v, ok := version.Parse(value)
		if !ok {
			return version.Version{}, fmt.Errorf("drivers: unrecognized redis version %q", value)
		}
		return v, nil
	}
	return version.Version{}, fmt.Errorf("drivers: redis_version missing from INFO server")
}

// Close implements vector.Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) namespaceKey(namespace string) string {
	return redisKeyPrefix + namespace
}

func (s *RedisStore) setKey(namespace, set string) string {
	return redisKeyPrefix + namespace + ":" + set
}

func (s *RedisStore) recordKey(key vector.Key) string {
	return redisKeyPrefix + key.Namespace + ":" + key.Set + ":" + key.UserKey
}

var (
	_ vector.Store     = (*RedisStore)(nil)
	_ vector.Versioned = (*RedisStore)(nil)
	_ vector.Truncater = (*RedisStore)(nil)
)
