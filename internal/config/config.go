package config

import (
	"errors"
	"fmt"
)

type Config struct {
	Environment     Environment
	Log             Log
	HTTP            HTTPServer
	BaseURL         string `env:"BASE_URL"`
	DatabasePath    string `env:"DATABASE_PATH" envDefault:"donations.db"`
	PackagesFile    string `env:"PACKAGES_FILE" envDefault:"packages.yaml"`
	SessionSecret   string `env:"SESSION_SECRET"`
	PaymentProvider string `env:"PAYMENT_PROVIDER" envDefault:"paypal"`

	Paypal    Paypal    `envPrefix:"PAYPAL_"`
	Braintree Braintree `envPrefix:"BRAINTREE_"`
	CFTools   CFTools   `envPrefix:"CFTOOLS_"`
	Discord   Discord   `envPrefix:"DISCORD_"`
}

// Validate checks settings that have no usable default. Called once at
// startup, before anything is constructed from the config.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	switch c.PaymentProvider {
	case "paypal", "braintree":
	default:
		return fmt.Errorf("unknown payment provider %q", c.PaymentProvider)
	}
	return nil
}

type Paypal struct {
	BaseApiURL   string `env:"BASE_API_URL"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	WebhookID    string `env:"WEBHOOK_ID"`
}

type Braintree struct {
	Environment string `env:"ENVIRONMENT"`
	MerchantID  string `env:"MERCHANT_ID"`
	PublicKey   string `env:"PUBLIC_KEY"`
	PrivateKey  string `env:"PRIVATE_KEY"`
}

type CFTools struct {
	BaseApiURL    string `env:"BASE_API_URL" envDefault:"https://data.cftools.cloud"`
	ApplicationID string `env:"APPLICATION_ID"`
	Secret        string `env:"SECRET"`
}

type Discord struct {
	BotToken string `env:"BOT_TOKEN"`
	GuildID  string `env:"GUILD_ID"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
