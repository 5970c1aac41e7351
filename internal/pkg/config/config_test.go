package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.Port != 8090 {
		t.Errorf("default port = %d; want 8090", cfg.Service.Port)
	}
	if cfg.Kafka.Topic != "promotion-events" {
		t.Errorf("default topic = %q; want promotion-events", cfg.Kafka.Topic)
	}
	if cfg.Sweeper.Interval != time.Minute {
		t.Errorf("default sweep interval = %v; want 1m", cfg.Sweeper.Interval)
	}
	if !cfg.Sweeper.Embedded {
		t.Error("sweeper should be embedded by default")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	content := `
service:
  name: promotion-service
  port: 9000
mysql:
  dsn: root:pw@tcp(db:3306)/mall?parseTime=true
kafka:
  brokers: ["k1:9092", "k2:9092"]
  topic: promo-test
zookeeper:
  addrs: ["zk1:2181"]
sweeper:
  interval: 15s
  batchSize: 10
  embedded: false
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.Port != 9000 {
		t.Errorf("port = %d; want 9000", cfg.Service.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "k1:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Sweeper.Interval != 15*time.Second {
		t.Errorf("interval = %v; want 15s", cfg.Sweeper.Interval)
	}
	if cfg.Sweeper.Embedded {
		t.Error("embedded should be false")
	}
	if len(cfg.Zookeeper.Addrs) != 1 {
		t.Errorf("zookeeper addrs = %v", cfg.Zookeeper.Addrs)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MYSQL_DSN", "env-dsn")
	t.Setenv("KAFKA_BROKERS", "b1:9092,b2:9092,b3:9092")
	t.Setenv("KAFKA_TOPIC", "env-topic")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MySQL.DSN != "env-dsn" {
		t.Errorf("dsn = %q; want env-dsn", cfg.MySQL.DSN)
	}
	if len(cfg.Kafka.Brokers) != 3 {
		t.Errorf("brokers = %v; want 3 entries", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Topic != "env-topic" {
		t.Errorf("topic = %q; want env-topic", cfg.Kafka.Topic)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
	if cfg.Service.Port != 8090 {
		t.Errorf("port = %d; want default 8090", cfg.Service.Port)
	}
}
