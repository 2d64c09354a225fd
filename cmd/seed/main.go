// Command seed provisions demo accounts and a demo session so the gateway
// can be exercised locally: two participants, one administrator, and a
// bearer token per account printed as a table.
package main

import (
	"fmt"
	"os"
	"time"

	"support-chat/auth"
	"support-chat/domain"
	"support-chat/internal"
	"support-chat/repositories"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type account struct {
	name     string
	email    string
	role     domain.Role
	password string
}

var accounts = []account{
	{"Alice Martin", "alice@example.com", domain.RoleRequester, "Requester123!"},
	{"Bruno Costa", "bruno@example.com", domain.RoleCounterpart, "Counterpart123!"},
	{"Carla Souza", "carla@example.com", domain.RoleAdministrator, "Administrator123!"},
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Seed terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() { _ = db.Close() }()

	users := repositories.NewUserRepository(db, logger)
	sessions := repositories.NewSessionRepository(db, logger)
	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Email", "Role", "User ID", "Token"})

	var created []repositories.User
	for _, acc := range accounts {
		hash, err := auth.HashPassword(acc.password)
		if err != nil {
			return exitRuntime, err
		}
		user := repositories.User{
			ID:           uuid.NewString(),
			Name:         acc.name,
			Email:        acc.email,
			Role:         acc.role,
			Active:       true,
			PasswordHash: hash,
			CreatedAt:    time.Now().UTC(),
		}
		if err = users.Create(user); err != nil {
			return exitRuntime, err
		}
		created = append(created, user)

		token, err := tokens.Generate(user.ID, user.Role)
		if err != nil {
			return exitRuntime, err
		}
		table.Append([]string{user.Name, user.Email, string(user.Role), user.ID, token})
	}

	session, err := domain.NewSession(created[0].ID, created[1].ID,
		domain.TopicQuestions, domain.PriorityMedium)
	if err != nil {
		return exitRuntime, err
	}
	if err = sessions.Create(session); err != nil {
		return exitRuntime, err
	}

	table.Render()
	fmt.Printf("\nDemo session: %s (requester=%s, counterpart=%s)\n",
		session.ID, created[0].Name, created[1].Name)
	return exitOK, nil
}
