package config

import (
	"flag"
	"github.com/ilyakaznacheev/cleanenv"
	"os"
)

type Config struct {
	Env       string `yaml:"env" env:"ENV" env-default:"local" env-description:"Environment" env-choices:"local,dev,prod"`
	ApiPort   int    `yaml:"api_port" env:"API_PORT" env-default:"8080"`
	ApiHost   string `yaml:"api_host" env:"API_HOST" env-default:"localhost"`
	JwtSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"secret42212"`
	Storage   `yaml:"storage"`
	Payme     `yaml:"payme"`
}

type Storage struct {
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"./data/luqea.db"`
}

// Payme holds the payment-gateway configuration. Client credentials and the
// merchant code have no defaults and must come from the environment.
type Payme struct {
	AuthUrl      string `yaml:"auth_url" env:"PAYME_AUTH_URL" env-default:"https://auth.preprod.alignet.io"`
	Audience     string `yaml:"audience" env:"PAYME_AUDIENCE" env-default:"https://api.preprod.alignet.io/"`
	ApiVersion   string `yaml:"api_version" env:"PAYME_API_VERSION" env-default:"1709847567"`
	ClientId     string `yaml:"client_id" env:"PAYME_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"PAYME_CLIENT_SECRET"`
	MerchantCode string `yaml:"merchant_code" env:"PAYME_MERCHANT_CODE"`
}

func MustLoad() *Config {
	path := fetchConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config file does not exist: " + path)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic("Failed to read config" + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
