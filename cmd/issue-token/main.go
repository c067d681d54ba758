package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"motionportal/internal/auth"
)

// Выпускает токен сессии для локальной проверки API
func main() {
	configPath := flag.String("config", ".auth.env", "path to auth config")
	userID := flag.String("user", "", "user id (token subject)")
	role := flag.String("role", auth.RoleTeamMember, "ADMIN, TEAM_MEMBER or CLIENT")
	asCookie := flag.Bool("cookie", false, "print a Cookie header instead of the bare token")
	flag.Parse()

	cfg, err := auth.NewConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load auth config: %v\n", err)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenManager(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create token manager: %v\n", err)
		os.Exit(1)
	}

	token, expiresAt, err := tokens.Issue(*userID, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}

	if *asCookie {
		fmt.Printf("Cookie: %s=%s\n", tokens.CookieName(), token)
	} else {
		fmt.Println(token)
	}
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
}
