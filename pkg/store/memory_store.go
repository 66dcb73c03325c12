package store

import (
	"sync"
	"time"
)

// MemoryTokenStore 进程内邀请令牌存储（单节点部署）
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*InvitationToken
}

// NewMemoryTokenStore 创建内存令牌存储
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		tokens: make(map[string]*InvitationToken),
	}
}

// Put 写入令牌
func (s *MemoryTokenStore) Put(token *InvitationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *token
	s.tokens[token.Token] = &copied
	return nil
}

// Get 读取令牌，不改状态
func (s *MemoryTokenStore) Get(token string) (*InvitationToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}

	copied := *stored
	return &copied, nil
}

// Consume 原子地校验并标记令牌已使用
//
// 整个检查并置位在同一把锁内完成，并发兑换同一令牌时
// 只有一个调用能把 used 从 false 翻到 true。
func (s *MemoryTokenStore) Consume(token string) (*InvitationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}

	if stored.Used {
		return nil, ErrTokenUsed
	}

	if time.Now().After(stored.ExpiresAt) {
		// 过期令牌在消费路径上顺带清理
		delete(s.tokens, token)
		return nil, ErrTokenExpired
	}

	stored.Used = true

	copied := *stored
	return &copied, nil
}

// Delete 删除令牌
func (s *MemoryTokenStore) Delete(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token]; !ok {
		return ErrTokenNotFound
	}

	delete(s.tokens, token)
	return nil
}

// List 列出全部令牌
func (s *MemoryTokenStore) List() ([]*InvitationToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]*InvitationToken, 0, len(s.tokens))
	for _, stored := range s.tokens {
		copied := *stored
		tokens = append(tokens, &copied)
	}
	return tokens, nil
}
