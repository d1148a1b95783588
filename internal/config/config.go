package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"caja/internal/logger"
)

// Configuration параметры запуска кассы
type Configuration struct {
	Address             string        `env:"ADDRESS" envDefault:":9091"`             // адрес HTTP сервера
	StoreDriver         string        `env:"STORE_DRIVER" envDefault:"memory"`       // memory | mongo
	MongoURI            string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB             string        `env:"MONGODB_DB" envDefault:"caja"`
	Timezone            string        `env:"TIMEZONE" envDefault:"UTC"`              // зона рабочего дня
	UnknownExtraPolicy  string        `env:"UNKNOWN_EXTRA_POLICY" envDefault:"zero"` // zero | reject
	DefaultDiscount     float64       `env:"DEFAULT_DISCOUNT" envDefault:"10"`       // скидка за наличные, пока не настроена
	CORSOrigins         []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	RegisterAutoCloseAt string        `env:"REGISTER_AUTO_CLOSE_AT"` // HH:MM, пусто = выключено
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	OrdersPageLimit     int           `env:"ORDERS_PAGE_LIMIT" envDefault:"20"`

	Log logger.LogConfig
}

// Load читает .env (если есть) и переменные окружения
func Load(files ...string) (*Configuration, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			files = []string{".env"}
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Configuration) Validate() error {
	switch c.StoreDriver {
	case "memory", "mongo":
	default:
		return fmt.Errorf("STORE_DRIVER: unsupported driver %q", c.StoreDriver)
	}
	switch c.UnknownExtraPolicy {
	case "zero", "reject":
	default:
		return fmt.Errorf("UNKNOWN_EXTRA_POLICY: unsupported policy %q", c.UnknownExtraPolicy)
	}
	if c.DefaultDiscount < 0 || c.DefaultDiscount > 100 {
		return fmt.Errorf("DEFAULT_DISCOUNT: %v out of [0,100]", c.DefaultDiscount)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.RegisterAutoCloseAt != "" {
		if _, err := time.Parse("15:04", c.RegisterAutoCloseAt); err != nil {
			return fmt.Errorf("REGISTER_AUTO_CLOSE_AT: expected HH:MM, got %q", c.RegisterAutoCloseAt)
		}
	}
	return nil
}

// Location зона, в которой считается «сегодня»
func (c *Configuration) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	return loc, nil
}
