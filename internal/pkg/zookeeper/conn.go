package zookeeper

import (
	"time"

	"github.com/go-zookeeper/zk"
)

// Conn 薄封装 zk 连接，统一创建参数并便于测试替换。
type Conn struct {
	*zk.Conn
}

// Connect 建立 zookeeper 会话。
func Connect(addrs []string, sessionTimeout time.Duration) (*Conn, error) {
	if sessionTimeout <= 0 {
		sessionTimeout = 10 * time.Second
	}
	conn, _, err := zk.Connect(addrs, sessionTimeout)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn}, nil
}

// Close 关闭会话，临时节点随之销毁。
func (c *Conn) Close() {
	c.Conn.Close()
}
