package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"fundraiser/internal/domain"
	"fundraiser/internal/middleware"
)

func main() {
	var (
		subFlag    string
		ttlFlag    time.Duration
		issuerFlag string
	)

	flag.StringVar(&subFlag, "sub", "", "caller identity to sign for (e.g. 0xabc...)")
	flag.DurationVar(&ttlFlag, "ttl", 24*time.Hour, "token lifetime")
	flag.StringVar(&issuerFlag, "iss", "", "token issuer (defaults to JWT_ISSUER or fundraiser)")
	flag.Parse()

	_ = godotenv.Load()

	sub, err := domain.ParseIdentity(subFlag)
	if err != nil {
		exitWithError(errors.New("-sub must be a non-zero identity"))
	}
	if ttlFlag <= 0 {
		exitWithError(errors.New("-ttl must be positive"))
	}

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		exitWithError(errors.New("JWT_SECRET is required"))
	}
	issuer := strings.TrimSpace(issuerFlag)
	if issuer == "" {
		issuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	}
	if issuer == "" {
		issuer = "fundraiser"
	}

	token, err := middleware.SignToken(secret, issuer, sub, ttlFlag, time.Now())
	if err != nil {
		exitWithError(err)
	}
	fmt.Println(token)
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "devtoken: %v\n", err)
	os.Exit(1)
}
