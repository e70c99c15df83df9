// Package httpapi exposes the contract service over HTTP JSON: routing,
// CORS, identity middleware and the error-to-status mapping live here.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/fleetops/contractd/internal/logging"
	"github.com/fleetops/contractd/internal/server/models"
	"github.com/fleetops/contractd/internal/server/services"
)

// IdentityResolver maps an external identity to a user record.
type IdentityResolver interface {
	Resolve(ctx context.Context, externalID string) (*models.User, error)
}

// ContractOperations is the service surface the handlers call.
type ContractOperations interface {
	Create(ctx context.Context, actor *models.User, in *services.ContractInput) (*services.ContractWithURL, error)
	Update(ctx context.Context, actor *models.User, id string, in *services.ContractInput) (*services.ContractWithURL, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	List(ctx context.Context, actor *models.User) ([]*services.ContractWithURL, error)
	Get(ctx context.Context, actor *models.User, id string) (*services.ContractWithURL, error)
}

// Router wires handlers, middleware and identity resolution.
type Router struct {
	identity     IdentityResolver
	contracts    ContractOperations
	secretKey    []byte
	mockIdentity string
	logger       logging.Logger
}

func NewRouter(identity IdentityResolver, contracts ContractOperations, secretKey []byte, mockIdentity string, logger logging.Logger) *Router {
	return &Router{
		identity:     identity,
		contracts:    contracts,
		secretKey:    secretKey,
		mockIdentity: mockIdentity,
		logger:       logger.With("module", "httpapi"),
	}
}

// Handler builds the chi route tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type", "Authorization",
			"x-wx-openid", "x-tcb-openid", "x-openid", "x-dev-openid",
		},
		MaxAge: 300,
	}))

	r.Get("/health", rt.health)

	r.Route("/contracts", func(r chi.Router) {
		r.Use(rt.withUser)
		r.Get("/", rt.listContracts)
		r.Post("/", rt.createContract)
		r.Get("/{id}", rt.getContract)
		r.Put("/{id}", rt.updateContract)
		r.Delete("/{id}", rt.deleteContract)
	})

	return r
}
