package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 已到期记录在Redis中的额外保留时间，供管理端回看
const redisRetention = 30 * 24 * time.Hour

// RedisTokenStore Redis邀请令牌存储（多实例部署时共享）
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// NewRedisTokenStore 创建Redis令牌存储
func NewRedisTokenStore(config *Config) *RedisTokenStore {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "lms:invite"
	}

	return &RedisTokenStore{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

// Ping 测试Redis连接
func (s *RedisTokenStore) Ping() error {
	ctx := context.Background()
	return s.client.Ping(ctx).Err()
}

func (s *RedisTokenStore) tokenKey(token string) string {
	return s.prefix + ":token:" + token
}

func (s *RedisTokenStore) usedKey(token string) string {
	return s.prefix + ":used:" + token
}

// 记录的Redis存活时间：到期时间加保留期
func retentionTTL(token *InvitationToken) time.Duration {
	ttl := time.Until(token.ExpiresAt) + redisRetention
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

// Put 写入令牌
func (s *RedisTokenStore) Put(token *InvitationToken) error {
	ctx := context.Background()

	data, err := json.Marshal(token)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.tokenKey(token.Token), data, retentionTTL(token)).Err()
}

// Get 读取令牌，不改状态
func (s *RedisTokenStore) Get(token string) (*InvitationToken, error) {
	ctx := context.Background()

	raw, err := s.client.Get(ctx, s.tokenKey(token)).Bytes()
	if err == redis.Nil {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	var stored InvitationToken
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}

	// 消费标记可能先于JSON回写被并发读到
	if !stored.Used {
		exists, err := s.client.Exists(ctx, s.usedKey(token)).Result()
		if err == nil && exists > 0 {
			stored.Used = true
		}
	}

	return &stored, nil
}

// Consume 原子地校验并标记令牌已使用
//
// used=false→true 的翻转由 SETNX 标记键保证：并发兑换同一令牌时
// 只有拿到标记的调用视为成功，其余返回 ErrTokenUsed。
func (s *RedisTokenStore) Consume(token string) (*InvitationToken, error) {
	ctx := context.Background()

	stored, err := s.Get(token)
	if err != nil {
		return nil, err
	}

	if stored.Used {
		return nil, ErrTokenUsed
	}

	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	// 原子抢占消费标记
	won, err := s.client.SetNX(ctx, s.usedKey(token), 1, retentionTTL(stored)).Result()
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrTokenUsed
	}

	// 回写used标志，保留原TTL
	stored.Used = true
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, s.tokenKey(token), data, redis.KeepTTL).Err(); err != nil {
		return nil, err
	}

	return stored, nil
}

// Delete 删除令牌
func (s *RedisTokenStore) Delete(token string) error {
	ctx := context.Background()

	deleted, err := s.client.Del(ctx, s.tokenKey(token)).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrTokenNotFound
	}

	s.client.Del(ctx, s.usedKey(token))
	return nil
}

// List 列出全部令牌
func (s *RedisTokenStore) List() ([]*InvitationToken, error) {
	ctx := context.Background()

	var tokens []*InvitationToken
	iter := s.client.Scan(ctx, 0, s.prefix+":token:*", 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var stored InvitationToken
		if err := json.Unmarshal(raw, &stored); err != nil {
			continue
		}
		tokens = append(tokens, &stored)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return tokens, nil
}
