package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/clubtab/clubtab/internal/config"
	"github.com/clubtab/clubtab/internal/domain/models"
	security "github.com/clubtab/clubtab/internal/jwt-new"
)

// devtoken mints a Bearer token for local development. Production tokens come
// from the account service; this tool signs with the same JWT_SECRET, so the
// server accepts its output.
func main() {
	var userIDFlag, emailFlag, roleFlag string
	flag.StringVar(&userIDFlag, "user-id", "", "subject user id (random when empty)")
	flag.StringVar(&emailFlag, "email", "dev@clubtab.local", "email claim")
	flag.StringVar(&roleFlag, "role", models.RoleCustomer, "role claim: customer, staff or operator")
	flag.Parse()

	cfg := config.MustLoad()

	userID := uuid.New()
	if userIDFlag != "" {
		parsed, err := uuid.Parse(userIDFlag)
		if err != nil {
			log.Fatalf("invalid user id %q: %v", userIDFlag, err)
		}
		userID = parsed
	}

	user := &models.User{ID: userID, Email: emailFlag, Role: roleFlag}
	token, err := security.NewToken(context.Background(), user, cfg.JWT.TokenTTL)
	if err != nil {
		log.Fatalf("failed to mint token: %v", err)
	}

	fmt.Println(token)
}
