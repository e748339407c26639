package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hlothaire/miniLastPass/internal/audit"
	"github.com/hlothaire/miniLastPass/internal/auth"
	"github.com/hlothaire/miniLastPass/internal/keystore"
	"github.com/hlothaire/miniLastPass/internal/ratelimit"
	"github.com/hlothaire/miniLastPass/internal/store"
	"github.com/hlothaire/miniLastPass/internal/vault"
)

type Server struct {
	cfg    Config
	mux    *http.ServeMux
	logger *zap.Logger

	issuer  *auth.TokenIssuer
	keys    *keystore.Store
	authSvc *auth.Service
	vaults  *vault.Service
	audit   *audit.Log

	// Outer per-IP guard on login, on top of the per-email sliding-window
	// budget inside the auth service.
	rlLoginIP *multiLimiter

	mongoClient *mongo.Client
}

func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Server, error) {
	cfg.setDefaults()
	if cfg.TokenSecret == "" {
		return nil, errors.New("server: TokenSecret required")
	}

	var accounts store.AccountStore
	var items store.ItemStore
	var mongoClient *mongo.Client

	if cfg.MongoURI != "" {
		cli, err := store.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		accounts, err = store.NewMongoAccountStore(ctx, cli, cfg.MongoDB, cfg.AccountsCollection)
		if err != nil {
			_ = cli.Disconnect(context.Background())
			return nil, err
		}
		items, err = store.NewMongoItemStore(ctx, cli, cfg.MongoDB, cfg.ItemsCollection)
		if err != nil {
			_ = cli.Disconnect(context.Background())
			return nil, err
		}
		mongoClient = cli
	} else {
		logger.Warn("no MongoURI configured, using in-memory stores")
		accounts = store.NewMemoryAccountStore()
		items = store.NewMemoryItemStore()
	}

	issuer, err := auth.NewTokenIssuer([]byte(cfg.TokenSecret), cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	keys := keystore.New(cfg.KeyTTL)
	limiter := ratelimit.New()
	auditLog := audit.New(logger.Named("audit"))

	s := &Server{
		cfg:         cfg,
		mux:         http.NewServeMux(),
		logger:      logger,
		issuer:      issuer,
		keys:        keys,
		authSvc:     auth.NewService(accounts, issuer, keys, limiter, cfg.KDF, logger.Named("auth")),
		vaults:      vault.NewService(items, limiter, auditLog, logger.Named("vault")),
		audit:       auditLog,
		mongoClient: mongoClient,
	}

	perWindow := func(n int, window time.Duration) float64 { return float64(n) / window.Seconds() }
	s.rlLoginIP = newMultiLimiter(rate.Limit(perWindow(30, time.Minute)), 30, time.Hour)

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/health", s.handleHealth)

	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.HandleFunc("/api/auth/me", s.handleMe)

	s.mux.HandleFunc("/api/vault", s.handleVault)
	s.mux.HandleFunc("/api/vault/", s.handleVaultItem)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic", zap.Any("value", rec), zap.String("path", r.URL.Path))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}()

	s.addDefaultHeaders(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	path := r.URL.Path
	if strings.HasPrefix(path, "/api/") && !s.isPublic(path) {
		auth.RequireAuth(s.issuer, s.keys)(s.mux).ServeHTTP(w, r)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler { return s }

// Close releases external resources; the derived-key store needs none,
// its contents die with the process by design.
func (s *Server) Close(ctx context.Context) error {
	if s.mongoClient != nil {
		return s.mongoClient.Disconnect(ctx)
	}
	return nil
}

func (s *Server) isPublic(path string) bool {
	switch path {
	case "/api/health", "/api/auth/signup", "/api/auth/login", "/api/auth/logout":
		return true
	default:
		return false
	}
}

func (s *Server) addDefaultHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
