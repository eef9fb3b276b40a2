// Package httpapi exposes the ledger core over HTTP (spec.md §6).
// Grounded on apiserver/server/routes.go's makeHandler pattern (a route
// handler returns (interface{}, *HandlerError); a thin adapter handles
// JSON encoding and error translation) adapted to gorilla/mux, with
// handlers reading path parameters through mux.Vars, plus a bearer-auth middleware
// and CORS/rate-limit wrappers the original Flask app attaches via
// decorators (flask_limiter, flask-cors) and this port attaches as
// net/http middleware instead.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/authsvc"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledger"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ratelimit"
)

type ctxKey string

const ctxKeyAddress ctxKey = "address"

// Server wires the ledger facade, auth service, and rate limiter into a
// gorilla/mux router.
type Server struct {
	ledger  *ledger.Ledger
	auth    *authsvc.Service
	limiter *ratelimit.Limiter
	log     *slog.Logger
}

// New builds a Server.
func New(l *ledger.Ledger, auth *authsvc.Service, limiter *ratelimit.Limiter, log *slog.Logger) *Server {
	return &Server{ledger: l, auth: auth, limiter: limiter, log: log}
}

// Router returns the fully-wired gorilla/mux router, routes declared per
// spec.md §6's endpoint table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.corsMiddleware, s.rateLimitMiddleware)

	router.HandleFunc("/", makeHandler(s.handleRoot)).Methods(http.MethodGet)
	router.HandleFunc("/health", makeHandler(s.handleHealth)).Methods(http.MethodGet)
	router.HandleFunc("/info", makeHandler(s.handleInfo)).Methods(http.MethodGet)
	router.HandleFunc("/chain", makeHandler(s.handleChain)).Methods(http.MethodGet)
	router.HandleFunc("/balance/{address}", makeHandler(s.handleBalances)).Methods(http.MethodGet)
	router.HandleFunc("/balance/{address}/{coin}", makeHandler(s.handleBalance)).Methods(http.MethodGet)
	router.HandleFunc("/pending_transactions", makeHandler(s.handlePendingTransactions)).Methods(http.MethodGet)
	router.HandleFunc("/stable_coins", makeHandler(s.handleStableCoins)).Methods(http.MethodGet)
	router.HandleFunc("/validate_chain", makeHandler(s.handleValidateChain)).Methods(http.MethodGet)
	router.HandleFunc("/mining_stats", makeHandler(s.handleMiningStats)).Methods(http.MethodGet)

	router.HandleFunc("/auth/register", makeHandler(s.handleRegister)).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", makeHandler(s.handleLogin)).Methods(http.MethodPost)

	router.HandleFunc("/transaction", makeHandler(s.withAuth(s.handleTransaction))).Methods(http.MethodPost)
	router.HandleFunc("/mine", makeHandler(s.withAuth(s.handleMine))).Methods(http.MethodPost)
	router.HandleFunc("/stable_coin", makeHandler(s.withAuth(s.handleCreateStableCoin))).Methods(http.MethodPost)
	router.HandleFunc("/mint", makeHandler(s.withAuth(s.handleMint))).Methods(http.MethodPost)
	router.HandleFunc("/authorize_minter", makeHandler(s.withAuth(s.handleAuthorizeMinter))).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	return router
}

type routeHandler func(r *http.Request) (interface{}, *HandlerError)

// makeHandler adapts a routeHandler to http.HandlerFunc: run it, then
// either encode the JSON success value or the shared error envelope
// (spec.md §6: `{ "error": "<message>" }`).
func makeHandler(h routeHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response, hErr := h(r)
		w.Header().Set("Content-Type", "application/json")
		if hErr != nil {
			w.WriteHeader(hErr.Code)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": hErr.Message})
			return
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}

// withAuth requires a valid bearer token and injects the authenticated
// address into the request context before delegating to h.
func (s *Server) withAuth(h routeHandler) routeHandler {
	return func(r *http.Request) (interface{}, *HandlerError) {
		header := r.Header.Get("Authorization")
		if header == "" {
			return nil, NewHandlerError(http.StatusUnauthorized, "missing token")
		}
		token := header
		const prefix = "Bearer "
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			token = header[len(prefix):]
		}
		address, err := s.auth.Verify(token)
		if err != nil {
			return nil, NewHandlerError(http.StatusUnauthorized, "invalid or expired token")
		}
		ctx := context.WithValue(r.Context(), ctxKeyAddress, address)
		return h(r.WithContext(ctx))
	}
}

func authenticatedAddress(r *http.Request) string {
	address, _ := r.Context().Value(ctxKeyAddress).(string)
	return address
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !s.limiter.Allow(key) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
}
