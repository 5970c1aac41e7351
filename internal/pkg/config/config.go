package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 服务配置。以 yaml 文件为底，环境变量覆盖关键项，
// 便于容器环境不改文件直接注入。
type Config struct {
	Service struct {
		Name string `yaml:"name"`
		Port int    `yaml:"port"`
	} `yaml:"service"`

	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	Zookeeper struct {
		// Addrs 为空时使用进程内锁，单实例部署足够。
		Addrs []string `yaml:"addrs"`
	} `yaml:"zookeeper"`

	Nacos struct {
		Addrs     string `yaml:"addrs"`
		Namespace string `yaml:"namespace"`
		Group     string `yaml:"group"`
	} `yaml:"nacos"`

	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`

	Sweeper struct {
		// Interval 清扫周期：换取负载的过期检测延迟上限。
		Interval  time.Duration `yaml:"interval"`
		BatchSize int           `yaml:"batchSize"`
		// Embedded 为 true 时清扫器跟随促销服务进程启动。
		Embedded bool `yaml:"embedded"`
	} `yaml:"sweeper"`
}

// Load 读取配置文件并套用环境变量覆盖。path 为空或文件不存在时
// 返回纯默认值 + 环境变量的配置，方便本地起服务。
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Service.Port = 8090
	cfg.Redis.Addr = "localhost:6379"
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.Topic = "promotion-events"
	cfg.Nacos.Group = "DEFAULT_GROUP"
	cfg.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Sweeper.Interval = time.Minute
	cfg.Sweeper.BatchSize = 100
	cfg.Sweeper.Embedded = true
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.MySQL.DSN = getEnv("MYSQL_DSN", cfg.MySQL.DSN)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	if v := getEnv("ZOOKEEPER_ADDRS", ""); v != "" {
		cfg.Zookeeper.Addrs = strings.Split(v, ",")
	}
	cfg.Nacos.Addrs = getEnv("NACOS_SERVER_ADDRS", cfg.Nacos.Addrs)
	cfg.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Nacos.Namespace)
	cfg.Nacos.Group = getEnv("NACOS_GROUP", cfg.Nacos.Group)
	cfg.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Jaeger.Endpoint)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
