package main

import (
	"log"

	"invitehub/config"
	_ "invitehub/docs"
	"invitehub/internal/app"
)

// @title InviteHub API
// @version 1.0
// @description Multi-tenant user pre-registration invitation service.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg)

	application, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
