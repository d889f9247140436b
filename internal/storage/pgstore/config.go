package pgstore

import (
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Config defines fields used for building the connection string, parsed from environment variables
type Config struct {
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     uint16 `env:"DB_PORT" envDefault:"5432"`
	DBName   string `env:"DB_NAME" envDefault:"campusmarket"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN returns connection string in keyword/value format.
// Empty password and sslmode are left out: an empty value would swallow the next keyword.
func (c Config) DSN() string {
	parts := []string{"user=" + c.User}
	if c.Password != "" {
		parts = append(parts, "password="+c.Password)
	}
	parts = append(parts,
		"host="+c.Host,
		"port="+strconv.FormatUint(uint64(c.Port), 10),
		"dbname="+c.DBName,
	)
	if c.SSLMode != "" {
		parts = append(parts, "sslmode="+c.SSLMode)
	}
	return strings.Join(parts, " ")
}

// Option alters the default configuration of the pgxpool.Config used during new Store construction
type Option interface {
	apply(*pgxpool.Config)
}

type optionFunc func(c *pgxpool.Config)

func (f optionFunc) apply(c *pgxpool.Config) { f(c) }

// ConnectionTimeout sets timeout for connection to be established
func ConnectionTimeout(d time.Duration) Option {
	return optionFunc(func(c *pgxpool.Config) {
		c.ConnConfig.ConnectTimeout = d
	})
}

// MaxConns limits the size of the connection pool
func MaxConns(n int32) Option {
	return optionFunc(func(c *pgxpool.Config) {
		c.MaxConns = n
	})
}
