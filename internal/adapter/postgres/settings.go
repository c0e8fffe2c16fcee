package postgres

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"go-simpler.org/env"
)

// Settings are the connection parameters of the database handle.
type Settings struct {
	Name     string `env:"DATABASE_NAME" default:"hackathon_db" validate:"required"`
	Host     string `env:"DATABASE_HOST" default:"localhost" validate:"required"`
	Port     int    `env:"DATABASE_PORT" default:"5432" validate:"min=1,max=65535"`
	User     string `env:"DATABASE_USER" default:"postgres" validate:"required"`
	Password string `env:"DATABASE_PASSWORD" default:"postgres"`

	SSLMode         string        `env:"DATABASE_SSLMODE" default:"prefer" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns        int           `env:"DATABASE_MAX_CONNS" default:"10" validate:"min=1"`
	MaxConnLifetime time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" default:"30m" validate:"min=0"`
}

// LoadSettings reads the DATABASE_* variables, falling back to the defaults
// for every variable that is unset.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Load(&s, nil); err != nil {
		return Settings{}, fmt.Errorf("failed to load database settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// settingsValidator reports fields by their environment variable name.
var settingsValidator = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
	return v
}()

func (s Settings) validate() error {
	err := settingsValidator.Struct(s)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s must not be empty", fe.Field())
	case "min":
		return fmt.Errorf("%s must be at least %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "max":
		return fmt.Errorf("%s must be at most %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "oneof":
		return fmt.Errorf("%s must be one of %s, got %q", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	default:
		return fmt.Errorf("%s is invalid: %w", fe.Field(), fe)
	}
}

// ConnString renders the settings as a postgres:// URL.
func (s Settings) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.User, s.Password),
		Host:   net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Path:   "/" + s.Name,
	}
	if s.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", s.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// PoolConfig builds the pgxpool descriptor. MinConns stays zero so that no
// connection is opened before the first request asks for one.
func (s Settings) PoolConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(s.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database settings: %w", err)
	}
	cfg.MinConns = 0
	cfg.MaxConns = int32(s.MaxConns)
	cfg.MaxConnLifetime = s.MaxConnLifetime
	return cfg, nil
}

// LogValue keeps the password out of logs.
func (s Settings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", s.Name),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.String("user", s.User),
		slog.String("sslmode", s.SSLMode),
		slog.Int("max_conns", s.MaxConns),
	)
}
