package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultDebugMode                = false
	DefaultLogFormat                = "text"
	DefaultServerPort               = "8080"
	DefaultServerReadTimeout        = 10 * time.Second
	DefaultServerWriteTimeout       = 10 * time.Second
	DefaultServerIdleTimeout        = 120 * time.Second
	DefaultServerShutdownTimeout    = 10 * time.Second
	DefaultStorageType              = "gist"
	DefaultFileName                 = "shared-debrid.json"
	DefaultStorageRequestTimeout    = 10 * time.Second
	DefaultGistAPIURL               = "https://api.github.com"
	DefaultGistAPIVersion           = "2022-11-28"
	DefaultEtcdAddrList             = "http://localhost:2379"
	DefaultEtcdPrefix               = "/shared-debrid/"
	DefaultEtcdDialTimeout          = 5 * time.Second
	DefaultEtcdTLSEnabled           = false
	DefaultEtcdServerCACertPath     = "/etc/etcd/ca.crt"
	DefaultEtcdServerClientCertPath = "/etc/etcd/client.crt"
	DefaultEtcdServerClientKeyPath  = "/etc/etcd/client.key"
	DefaultRedisAddr                = "localhost:6379"
	DefaultRedisPassword            = ""
	DefaultRedisDB                  = 0
	DefaultRedisPrefix              = "shared-debrid"
	DefaultCacheEnabled             = true
	DefaultCacheSize                = 1000
	DefaultCacheTTL                 = 10 * time.Minute
)

type Config struct {
	Server    ServerCfg
	Storage   StorageCfg
	Cache     CacheCfg
	Debug     bool
	LogFormat string
}

type ServerCfg struct {
	Port    string
	Timeout ServerTimeout
}

type ServerTimeout struct {
	Read     time.Duration
	Write    time.Duration
	Idle     time.Duration
	Shutdown time.Duration
}

type StorageCfg struct {
	Type           string `validate:"required" oneof:"gist etcd redis mock"`
	FileName       string
	RequestTimeout time.Duration
	Gist           GistCfg
	Etcd           EtcdCfg
	Redis          RedisCfg
	Mock           MockCfg
}

type GistCfg struct {
	APIURL     string
	APIVersion string
}

type MockCfg struct {
}

type EtcdCfg struct {
	EtcdAddrList         []string
	Prefix               string
	DialTimeout          time.Duration
	TLSEnabled           bool
	ServerCACertPath     string
	ServerClientCertPath string
	ServerClientKeyPath  string
}

type RedisCfg struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type CacheCfg struct {
	Enabled bool
	Size    int
	TTL     time.Duration
}

func NewConfig() *Config {
	etcdEndpointsList, err := checkEtcdEndpointsList(getEnv("SHARED_DEBRID_ETCD_ADDR_LIST", DefaultEtcdAddrList))
	if err != nil {
		log.Fatal(err)
	}

	return &Config{
		Server: ServerCfg{
			Port: getEnv("SHARED_DEBRID_SERVER_PORT", DefaultServerPort),
			Timeout: ServerTimeout{
				Read:     getEnv("SHARED_DEBRID_SERVER_READ_TIMEOUT", DefaultServerReadTimeout),
				Write:    getEnv("SHARED_DEBRID_SERVER_WRITE_TIMEOUT", DefaultServerWriteTimeout),
				Idle:     getEnv("SHARED_DEBRID_SERVER_IDLE_TIMEOUT", DefaultServerIdleTimeout),
				Shutdown: getEnv("SHARED_DEBRID_SERVER_SHUTDOWN_TIMEOUT", DefaultServerShutdownTimeout),
			},
		},
		Storage: StorageCfg{
			Type:           getEnv("SHARED_DEBRID_STORAGE_TYPE", DefaultStorageType),
			FileName:       getEnv("SHARED_DEBRID_FILE_NAME", DefaultFileName),
			RequestTimeout: getEnv("SHARED_DEBRID_STORAGE_REQUEST_TIMEOUT", DefaultStorageRequestTimeout),
			Gist: GistCfg{
				APIURL:     strings.TrimRight(getEnv("SHARED_DEBRID_GIST_API_URL", DefaultGistAPIURL), "/"),
				APIVersion: getEnv("SHARED_DEBRID_GIST_API_VERSION", DefaultGistAPIVersion),
			},
			Etcd: EtcdCfg{
				EtcdAddrList:         etcdEndpointsList,
				Prefix:               getEnv("SHARED_DEBRID_ETCD_PREFIX", DefaultEtcdPrefix),
				DialTimeout:          getEnv("SHARED_DEBRID_ETCD_DIAL_TIMEOUT", DefaultEtcdDialTimeout),
				TLSEnabled:           getEnv("SHARED_DEBRID_ETCD_TLS", DefaultEtcdTLSEnabled),
				ServerCACertPath:     getEnv("SHARED_DEBRID_CA_CERT_PATH", DefaultEtcdServerCACertPath),
				ServerClientCertPath: getEnv("SHARED_DEBRID_CLIENT_CERT_PATH", DefaultEtcdServerClientCertPath),
				ServerClientKeyPath:  getEnv("SHARED_DEBRID_CLIENT_KEY_PATH", DefaultEtcdServerClientKeyPath),
			},
			Redis: RedisCfg{
				Addr:     getEnv("SHARED_DEBRID_REDIS_ADDR", DefaultRedisAddr),
				Password: getEnv("SHARED_DEBRID_REDIS_PASSWORD", DefaultRedisPassword),
				DB:       getEnv("SHARED_DEBRID_REDIS_DB", DefaultRedisDB),
				Prefix:   getEnv("SHARED_DEBRID_REDIS_PREFIX", DefaultRedisPrefix),
			},
		},
		Cache: CacheCfg{
			Enabled: getEnv("SHARED_DEBRID_CACHE_ENABLED", DefaultCacheEnabled),
			Size:    getEnv("SHARED_DEBRID_CACHE_SIZE", DefaultCacheSize),
			TTL:     getEnv("SHARED_DEBRID_CACHE_TTL", DefaultCacheTTL),
		},
		Debug:     getEnv("SHARED_DEBRID_DEBUG", bool(DefaultDebugMode)),
		LogFormat: getEnv("SHARED_DEBRID_LOG_FORMAT", DefaultLogFormat),
	}
}

// ConfigureLogger applies the level and format settings to the standard
// logrus logger.
func (c *Config) ConfigureLogger() {
	if c.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getEnv[T any](key string, defaultVal T) T {
	if value, exists := os.LookupEnv(key); exists {
		switch any(defaultVal).(type) {
		case string:
			return any(value).(T)
		case int:
			if intVal, err := strconv.Atoi(value); err == nil {
				return any(intVal).(T)
			}
		case bool:
			if boolVal, err := strconv.ParseBool(value); err == nil {
				return any(boolVal).(T)
			}
		case time.Duration:
			if durationVal, err := time.ParseDuration(value); err == nil {
				return any(durationVal).(T)
			}
		}
		log.Warnf("Ignoring invalid value %q for %v, using default %v", value, key, defaultVal)
	}

	return defaultVal
}

func checkEtcdEndpointsList(etcdEndpointsList string) ([]string, error) {
	etcdEndpoints := strings.Split(etcdEndpointsList, ",")
	if len(etcdEndpoints) == 0 {
		return nil, fmt.Errorf("no etcd endpoints provided")
	}
	if strings.ContainsAny(etcdEndpointsList, ";|") {
		return nil, fmt.Errorf("invalid separator in etcd endpoints. Use comma (,) to separate endpoints")
	}

	for i, endpoint := range etcdEndpoints {
		if endpoint = strings.TrimSpace(endpoint); endpoint == "" {
			return nil, fmt.Errorf("empty etcd endpoint provided")
		}
		etcdEndpoints[i] = endpoint
	}

	return etcdEndpoints, nil
}
