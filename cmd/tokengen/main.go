// Package main provides a CLI tool for generating test session tokens.
// These tokens use the dev signing key and will NOT work in production.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/authelia/authelia-sub004/internal/session"
)

const (
	// Dev signing key - matches config.go when JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	defaultIssuer   = "authelia"
	defaultTokenTTL = time.Hour
)

type tokenOutput struct {
	Token     string         `json:"token"`
	ExpiresIn string         `json:"expires_in"`
	Claims    map[string]any `json:"claims"`
	Usage     string         `json:"usage"`
}

func main() {
	userID := flag.String("user-id", "", "User ID. Generated if empty.")
	sessionID := flag.String("session-id", "", "Session ID. Generated if empty.")
	groups := flag.String("groups", "", "Comma-separated group names")
	ttl := flag.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	signingKey := flag.String("signing-key", devSigningKey, "HS256 signing key")
	issuer := flag.String("issuer", defaultIssuer, "Token issuer")
	asJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if *userID == "" {
		*userID = uuid.NewString()
	}
	if *sessionID == "" {
		*sessionID = uuid.NewString()
	}

	var groupList []string
	if *groups != "" {
		groupList = strings.Split(*groups, ",")
	}

	svc := session.NewService(*signingKey, *issuer, *ttl)
	token, err := svc.Issue(*userID, *sessionID, groupList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}

	if !*asJSON {
		fmt.Println(token)
		return
	}

	out := tokenOutput{
		Token:     token,
		ExpiresIn: ttl.String(),
		Claims: map[string]any{
			"user_id":    *userID,
			"session_id": *sessionID,
			"groups":     groupList,
		},
		Usage: `curl -H "Authorization: Bearer <token>" http://localhost:9091/api/state`,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
