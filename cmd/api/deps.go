package main

import (
	"log"

	"authgate/internal/domain/credentials"
	"authgate/internal/domain/identity"
	"authgate/internal/infrastructure/crypto"
	"authgate/internal/infrastructure/postgres"
	httphandlers "authgate/internal/interfaces/http"
	"authgate/internal/scheduler"
	"authgate/internal/shared/auth"
	"authgate/internal/shared/config"

	"golang.org/x/crypto/bcrypt"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AuthHandler     *httphandlers.AuthHandler
	ProviderHandler *httphandlers.ProviderHandler
	UserHandler     *httphandlers.UserHandler

	// Auth
	Sessions *auth.Sessions

	// Repositories (for the janitor)
	UserRepo *postgres.UserRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	// Initialize encryptor
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db, encryptor)

	// Initialize domain services
	credsService := credentials.NewService(userRepo, bcrypt.DefaultCost)
	reconciler := identity.NewReconciler(userRepo, identity.DefaultPolicies())

	// Initialize auth components
	sessions := auth.NewSessions(cfg.JWT.Secret, 0)
	flows := buildFlows(cfg.OAuth)

	// Initialize handlers
	authHandler := httphandlers.NewAuthHandler(credsService, sessions)
	providerHandler := httphandlers.NewProviderHandler(flows, reconciler, sessions,
		cfg.Client.SuccessURL, cfg.Client.ErrorURL)
	userHandler := httphandlers.NewUserHandler(userRepo)

	return &Dependencies{
		DB:              db,
		AuthHandler:     authHandler,
		ProviderHandler: providerHandler,
		UserHandler:     userHandler,
		Sessions:        sessions,
		UserRepo:        userRepo,
	}, nil
}

// buildFlows wires a consent flow for every provider with credentials
// configured. Unconfigured providers are simply absent from the map and
// answer 404 at the handler.
func buildFlows(cfg config.OAuthConfig) map[identity.Provider]auth.OAuthFlow {
	flows := make(map[identity.Provider]auth.OAuthFlow)

	if cfg.Google.ClientID != "" {
		flows[identity.Google] = auth.NewGoogleFlow(
			cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL)
	}
	if cfg.Facebook.ClientID != "" {
		flows[identity.Facebook] = auth.NewFacebookFlow(
			cfg.Facebook.ClientID, cfg.Facebook.ClientSecret, cfg.Facebook.CallbackURL)
	}
	if cfg.Twitter.ClientID != "" {
		flows[identity.Twitter] = auth.NewTwitterFlow(
			cfg.Twitter.ClientID, cfg.Twitter.ClientSecret, cfg.Twitter.CallbackURL)
	}
	if cfg.LinkedIn.ClientID != "" {
		flows[identity.LinkedIn] = auth.NewLinkedInFlow(
			cfg.LinkedIn.ClientID, cfg.LinkedIn.ClientSecret, cfg.LinkedIn.CallbackURL)
	}

	if len(flows) == 0 {
		log.Println("Warning: no OAuth providers configured")
	}
	return flows
}

// NewJanitor builds the reset token janitor over the user repository.
func (d *Dependencies) NewJanitor(cfg *config.Config) *scheduler.Janitor {
	return scheduler.NewJanitor(d.UserRepo, cfg.Janitor.Interval)
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
