package database

import (
	"lms/pkg/config"
	"lms/pkg/logger"
	"lms/pkg/store"
	"sync"
)

var (
	tokenStoreInstance store.TokenStore
	tokenStoreOnce     sync.Once
)

// GetTokenStore 获取邀请令牌存储的单例实例
//
// 按配置选择驱动：memory用于单节点，redis用于多实例部署共享。
func GetTokenStore() store.TokenStore {
	tokenStoreOnce.Do(func() {
		cfg := config.GetConfig()
		switch cfg.TokenStore.Driver {
		case "redis":
			tokenStoreInstance = store.NewRedisTokenStore(&store.Config{
				Host:     cfg.Redis.Host,
				Port:     cfg.Redis.Port,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
				Prefix:   cfg.Redis.Prefix,
			})
		default:
			tokenStoreInstance = store.NewMemoryTokenStore()
		}
		logger.GetLogger().Infof("Token store initialized with driver: %s", cfg.TokenStore.Driver)
	})
	return tokenStoreInstance
}

// CloseTokenStore 关闭令牌存储连接
func CloseTokenStore() error {
	if redisStore, ok := tokenStoreInstance.(*store.RedisTokenStore); ok {
		return redisStore.Close()
	}
	return nil
}
