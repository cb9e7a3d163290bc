package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "craftcart:admin:"

// KEYS[1] credential, KEYS[2] user, ARGV[1] expected credential ("" for absent)
var clearIfScript = redis.NewScript(`
local stored = redis.call('GET', KEYS[1])
if stored == false then stored = '' end
if stored ~= ARGV[1] then return 0 end
return redis.call('DEL', KEYS[1], KEYS[2])
`)

// RedisStore keeps the session in two string keys under a prefix. Writes go
// through MULTI/EXEC so the pair is never half written.
type RedisStore struct {
	client        redis.UniversalClient
	credentialKey string
	userKey       string
}

var _ session.Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client:        client,
		credentialKey: prefix + session.CredentialKey,
		userKey:       prefix + session.UserKey,
	}
}

func (s *RedisStore) Save(
	credential string,
	user *session.User,
) error {
	if credential == "" {
		return session.ErrEmptyCredential
	}

	var userJSON []byte
	if user != nil {
		var err error
		if userJSON, err = json.Marshal(user); err != nil {
			return fmt.Errorf("couldn't encode user record: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.credentialKey, credential, 0)
		if user != nil {
			pipe.Set(ctx, s.userKey, userJSON, 0)
		} else {
			pipe.Del(ctx, s.userKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("couldn't write session: %v", err)
	}
	return nil
}

func (s *RedisStore) Load() (string, *session.User) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	values, err := s.client.MGet(ctx, s.credentialKey, s.userKey).Result()
	if err != nil {
		log.Printf("database: couldn't load session from redis: %v\n", err)
		return "", nil
	}

	credential, _ := values[0].(string)
	userJSON, _ := values[1].(string)
	return credential, decodeUser(userJSON)
}

func (s *RedisStore) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.credentialKey, s.userKey).Err(); err != nil {
		log.Printf("database: couldn't clear session in redis: %v\n", err)
	}
}

func (s *RedisStore) ClearIf(credential string) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	keys := []string{s.credentialKey, s.userKey}
	if err := clearIfScript.Run(ctx, s.client, keys, credential).Err(); err != nil {
		log.Printf("database: couldn't clear session in redis: %v\n", err)
	}
}
