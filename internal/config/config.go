package config

import (
	"crypto/rand"
	"crypto/rsa"
	"log"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	JWTPrivateKey *rsa.PrivateKey
	JWTPublicKey  *rsa.PublicKey
	Port          string

	StoreDriver string
	DatabaseURL string
	ChangeFeed  string

	RedisAddress  string
	RedisPassword string

	AdminEmail         string
	AdminKey           string
	RegistrationSecret string

	CaptchaTTL time.Duration
	TokenTTL   time.Duration

	AllowedOrigins []string
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	FeedRedis      = "redis"
)

// newViper loads an optional .env file and exposes the environment through
// viper with the service defaults.
func newViper() *viper.Viper {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Fatalf("config: failed to load %s: %v", envFile, err)
		}
	}

	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("store_driver", DriverPostgres)
	v.SetDefault("change_feed", DriverPostgres)
	v.SetDefault("redis_address", "localhost:6379")
	v.SetDefault("private_key_path", "/etc/certs/private.pem")
	v.SetDefault("public_key_path", "/etc/certs/public.pem")
	v.SetDefault("admin_email", "admin@militaryhostel.com")
	v.SetDefault("captcha_ttl", 5*time.Minute)
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("transition_queue_name", "record-transitions")
	v.AutomaticEnv()
	return v
}

func Load() *Config {
	v := newViper()

	privateKey, publicKey := loadKeyPair(v)

	storeDriver := strings.ToLower(v.GetString("store_driver"))
	dbURL := v.GetString("db_connection_string")
	if storeDriver == DriverPostgres && dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required")
	}

	adminKey := v.GetString("admin_key")
	if adminKey == "" {
		panic("ADMIN_KEY environment variable is required")
	}
	secret := v.GetString("registration_secret")
	if secret == "" {
		panic("REGISTRATION_SECRET environment variable is required")
	}

	cfg := &Config{
		JWTPrivateKey:      privateKey,
		JWTPublicKey:       publicKey,
		Port:               v.GetString("port"),
		StoreDriver:        storeDriver,
		DatabaseURL:        dbURL,
		ChangeFeed:         strings.ToLower(v.GetString("change_feed")),
		RedisAddress:       v.GetString("redis_address"),
		RedisPassword:      v.GetString("redis_password"),
		AdminEmail:         v.GetString("admin_email"),
		AdminKey:           adminKey,
		RegistrationSecret: secret,
		CaptchaTTL:         v.GetDuration("captcha_ttl"),
		TokenTTL:           v.GetDuration("token_ttl"),
		AllowedOrigins:     splitList(v.GetString("cors_allowed_origins")),
	}
	if err := cfg.validate(); err != nil {
		panic(err.Error())
	}
	return cfg
}

func (c *Config) validate() error {
	if c.ChangeFeed == FeedRedis && c.RedisAddress == "" {
		return errors.New("REDIS_ADDRESS is required when CHANGE_FEED=redis")
	}
	return nil
}

// RedisEnabled reports whether the service needs Redis. The in-memory
// driver runs without it unless the change feed is Redis.
func (c *Config) RedisEnabled() bool {
	if c.RedisAddress == "" {
		return false
	}
	return c.StoreDriver != DriverMemory || c.ChangeFeed == FeedRedis
}

func loadKeyPair(v *viper.Viper) (*rsa.PrivateKey, *rsa.PublicKey) {
	privateKeyPath := v.GetString("private_key_path")
	publicKeyPath := v.GetString("public_key_path")

	_, privErr := os.Stat(privateKeyPath)
	_, pubErr := os.Stat(publicKeyPath)
	if (os.IsNotExist(privErr) || os.IsNotExist(pubErr)) && v.GetBool("allow_ephemeral_keys") {
		log.Printf("config: key files missing, generating an ephemeral RSA key pair")
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic("Failed to generate key pair: " + err.Error())
		}
		return key, &key.PublicKey
	}

	privateKey, err := loadPrivateKey(privateKeyPath)
	if err != nil {
		panic("Failed to load private key: " + err.Error())
	}
	publicKey, err := loadPublicKey(publicKeyPath)
	if err != nil {
		panic("Failed to load public key: " + err.Error())
	}
	return privateKey, publicKey
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPrivateKeyFromPEM(keyData)
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(keyData)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
