// Package main выпускает HS256-токены для подтверждённых вызывающих linkpulse.
//
// Использование:
//
//	go run ./cmd/linktoken -sub partner-42 -ttl 720h
//
// Секрет берётся из флага -secret или переменной JWT_SECRET (в том числе из .env).
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/tempizhere/linkpulse/internal/identity"
)

// issuer совпадает с издателем, которого ожидает сервер
const issuer = "linkpulse"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		panic(err)
	}
}

func run(args []string, out io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	fs := flag.NewFlagSet("linktoken", flag.ContinueOnError)
	secret := fs.String("secret", os.Getenv("JWT_SECRET"), "JWT secret key")
	subject := fs.String("sub", "", "subject of the token, identifies the caller")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *secret == "" {
		return errors.New("JWT secret is required")
	}
	if *subject == "" {
		return errors.New("subject is required")
	}
	if *ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", *ttl)
	}

	token, err := identity.NewJWTVerifier(*secret, issuer).Issue(*subject, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
