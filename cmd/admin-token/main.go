package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/auth"
	"github.com/AhmedB2023/ecommerce-backend/internal/config"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type adminConfig struct {
	Admin config.Admin `yaml:"admin"`
}

func main() {
	subject := flag.String("subject", "", "operator the token is issued to")
	vendor := flag.Int64("vendor", 0, "issue a vendor token for this vendor id instead")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to admin.token_ttl")
	flag.Parse()

	if *subject == "" && *vendor == 0 {
		log.Fatal("-subject or -vendor is required")
	}

	cfg, err := load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lifetime := cfg.Admin.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	issuer := auth.NewIssuer(cfg.Admin.JWTSecret, lifetime)

	var token string
	if *vendor != 0 {
		*subject = fmt.Sprintf("vendor %d", *vendor)
		token, err = issuer.IssueVendor(*vendor)
	} else {
		token, err = issuer.Issue(*subject)
	}
	if err != nil {
		log.Fatalf("can't issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "token for %q expires at %s\n", *subject, time.Now().Add(lifetime).Format(time.RFC3339))
	fmt.Println(token)
}

func load() (*adminConfig, error) {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		return nil, fmt.Errorf("CONFIG_PATH is not set")
	}

	var cfg adminConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("can't read config: %v", err)
	}

	return &cfg, nil
}
