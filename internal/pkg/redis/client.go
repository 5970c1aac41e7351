package redis

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
)

// Client 在 go-redis 之上加了一层 Lua 脚本注册表。
// 脚本在进程启动时注册，运行期按名字执行，SHA 缓存由 go-redis 维护。
type Client struct {
	rdb *goredis.Client

	mu      sync.RWMutex
	scripts map[string]*goredis.Script
}

// NewClient 创建 redis 客户端封装。
func NewClient(addr, password string, db int) *Client {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{
		rdb:     rdb,
		scripts: make(map[string]*goredis.Script),
	}
}

// LoadScriptFromContent 以内容注册一段 Lua 脚本。
func (c *Client) LoadScriptFromContent(name, content string) error {
	if content == "" {
		return fmt.Errorf("script %q is empty", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[name] = goredis.NewScript(content)
	return nil
}

// RunScript 执行已注册的脚本。EVALSHA miss 时 go-redis 自动回退 EVAL。
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	c.mu.RLock()
	script, ok := c.scripts[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("script %q is not loaded", name)
	}
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

// GetClient 暴露底层客户端，管道等高级用法直接操作。
func (c *Client) GetClient() *goredis.Client {
	return c.rdb
}

// Close 关闭连接池。
func (c *Client) Close() error {
	return c.rdb.Close()
}
