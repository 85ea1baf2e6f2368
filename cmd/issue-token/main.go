package main

import (
	"fmt"
	"os"
	"time"

	"github.com/garyjia/service-workflow/internal/config"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	httpiface "github.com/garyjia/service-workflow/internal/interfaces/http"
)

// Prints a bearer token for local testing against the API.
//
//	issue-token <user-id> <role> [service-center-id]

const tokenTTL = 24 * time.Hour

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: issue-token <user-id> <role> [service-center-id]")
		os.Exit(2)
	}

	actor := entity.Actor{UserID: os.Args[1], Role: entity.Role(os.Args[2])}
	if len(os.Args) > 3 {
		actor.ServiceCenterID = os.Args[3]
	}
	if !actor.Role.IsValid() {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", os.Args[2])
		os.Exit(2)
	}

	configPath := os.Getenv("WORKFLOW_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath, ".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	token, err := httpiface.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer).IssueToken(actor, tokenTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
