// Command devtoken issues an identity token accepted by the ticket server,
// for exercising the API locally without the external identity provider.
// It signs with JWT_SECRET (and sets JWT_ISSUER/JWT_AUDIENCE when present),
// reading a .env file first like the server does.  TOKEN_TTL sets the
// default lifetime.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/support-tickets/internal/config"
	"github.com/iliyamo/support-tickets/internal/model"
	"github.com/iliyamo/support-tickets/internal/utils"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	var (
		subject string
		email   string
		ttl     time.Duration
		secret  string
	)
	flagSet := pflag.NewFlagSet("devtoken", pflag.ContinueOnError)
	flagSet.StringVarP(&subject, "subject", "s", "", "subject (user id) to put in the sub claim")
	flagSet.StringVarP(&email, "email", "e", "", "email claim")
	flagSet.DurationVar(&ttl, "ttl", config.TokenTTL(), "token lifetime ($TOKEN_TTL when set)")
	flagSet.StringVar(&secret, "secret", "", "signing secret (default: $JWT_SECRET)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		return errors.New("no signing secret: pass --secret or set JWT_SECRET")
	}
	if subject == "" {
		return errors.New("--subject is required")
	}

	tok, err := utils.NewAccessToken(secret, model.Identity{SubjectID: subject, Email: email}, utils.TokenOptions{
		Issuer:   os.Getenv("JWT_ISSUER"),
		Audience: os.Getenv("JWT_AUDIENCE"),
		TTL:      ttl,
	})
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `devtoken: issue a bearer token for the ticket API.

Usage: devtoken --subject <id> [--email <addr>] [--ttl 30m]

Flags:
%s`, flagSet.FlagUsages())
}
