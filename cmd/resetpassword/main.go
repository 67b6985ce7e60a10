// Command resetpassword sets a teacher account's password from the command
// line. Usage: resetpassword [username] [password]. Both default to the
// built-in admin credentials, which also marks the account as still using the
// default password. Only the database settings are read, so the JWT secret
// does not need to be set.
package main

import (
	"context"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prezenta-go-api/internal/config"
	"github.com/noah-isme/prezenta-go-api/internal/database"
	"github.com/noah-isme/prezenta-go-api/internal/repository"
	"github.com/noah-isme/prezenta-go-api/internal/service"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	username := service.DefaultAdminUsername
	password := service.DefaultAdminPassword
	if len(os.Args) > 1 {
		username = os.Args[1]
	}
	if len(os.Args) > 2 {
		password = os.Args[2]
	}

	cfg, err := config.LoadStorage()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	auth := service.NewAuthService(repository.NewTeacherRepository(db), validator.New(), cfg.JWTSecret, cfg.JWTTTL, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := auth.EnsureDefaultAdmin(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed default admin")
	}
	if err := auth.ResetPassword(ctx, username, password); err != nil {
		logger.Fatal().Err(err).Str("username", username).Msg("failed to reset password")
	}

	logger.Info().Str("username", username).Bool("default", password == service.DefaultAdminPassword).Msg("password reset")
}
