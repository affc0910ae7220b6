package api

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/gorilla/mux"
	"github.com/luqea/luqea-wallet/internal/config"
	"github.com/luqea/luqea-wallet/internal/directory"
	"github.com/luqea/luqea-wallet/internal/domain/models"
	"github.com/luqea/luqea-wallet/internal/lib/jwt"
	"github.com/luqea/luqea-wallet/internal/payme"
	"github.com/luqea/luqea-wallet/internal/wallet"
	"github.com/shopspring/decimal"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type ctxKey string

const ctxEmail ctxKey = "email"

const sessionTokenTTL = 24 * time.Hour

type APIServer struct {
	config    *config.Config
	logger    *slog.Logger
	store     *wallet.Store
	handshake *payme.Handshake
	bridge    *WidgetBridge
	server    *http.Server
	jwtSecret []byte
}

func New(config *config.Config, logger *slog.Logger, store *wallet.Store, handshake *payme.Handshake, bridge *WidgetBridge, jwtSecret []byte) *APIServer {
	return &APIServer{
		config: config,
		logger: logger,
		store:  store,
		server: &http.Server{
			Addr: config.ApiHost + ":" + strconv.Itoa(config.ApiPort),
		},
		handshake: handshake,
		bridge:    bridge,
		jwtSecret: jwtSecret,
	}
}

func (s *APIServer) Start() error {
	s.logger.Info("Starting server", slog.String("port", strconv.Itoa(s.config.ApiPort)))

	s.configureRouter()

	return s.server.ListenAndServe()
}

func (s *APIServer) MustStart() {
	err := s.Start()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic("Failed to start server: " + err.Error())
	}
}

func (s *APIServer) Stop(ctx context.Context) error {
	defer s.logger.Info("Server successfully stopped")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) configureRouter() {
	router := mux.NewRouter()
	router.HandleFunc("/api/login", s.loginHandler()).Methods("POST")
	router.HandleFunc("/api/signup", s.signupHandler()).Methods("POST")
	router.HandleFunc("/api/logout", s.authenticate(s.logoutHandler())).Methods("POST")
	router.HandleFunc("/api/wallet", s.authenticate(s.walletHandler())).Methods("GET")
	router.HandleFunc("/api/transactions", s.authenticate(s.transactionsHandler())).Methods("GET")
	router.HandleFunc("/api/send", s.authenticate(s.sendHandler())).Methods("POST")
	router.HandleFunc("/api/topup/start", s.authenticate(s.topupStartHandler())).Methods("POST")
	router.HandleFunc("/api/topup/complete", s.authenticate(s.topupCompleteHandler())).Methods("POST")
	router.HandleFunc("/api/topup/retry", s.authenticate(s.topupRetryHandler())).Methods("POST")
	router.HandleFunc("/api/topup/method", s.authenticate(s.topupMethodHandler())).Methods("POST")
	s.server.Handler = router
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (s *APIServer) loginHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request format", http.StatusBadRequest)
			return
		}

		if err := s.store.Login(req.Email, req.Password); err != nil {
			http.Error(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}

		s.writeAuthResponse(w)
	}
}

func (s *APIServer) signupHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request format", http.StatusBadRequest)
			return
		}

		if req.Name == "" || req.Email == "" || req.Password == "" {
			http.Error(w, "Name, email and password are required", http.StatusBadRequest)
			return
		}

		if err := s.store.Register(req.Name, req.Email, req.Password); err != nil {
			if errors.Is(err, directory.ErrDuplicateAccount) {
				http.Error(w, "This account is already registered", http.StatusConflict)
				return
			}
			http.Error(w, "Registration failed", http.StatusInternalServerError)
			s.logger.Error("Failed to register account", "error", err)
			return
		}

		s.writeAuthResponse(w)
	}
}

// writeAuthResponse mints a bearer token for the freshly established session.
func (s *APIServer) writeAuthResponse(w http.ResponseWriter) {
	session := s.store.Session()

	token, err := jwt.NewToken(session, string(s.jwtSecret), sessionTokenTTL)
	if err != nil {
		http.Error(w, "Failed to issue session token", http.StatusInternalServerError)
		s.logger.Error("Failed to issue session token", "error", err)
		return
	}

	err = json.NewEncoder(w).Encode(AuthResponse{
		Token: token,
		Email: session.Email,
		Name:  session.DisplayName,
		Role:  session.Role,
	})
	if err != nil {
		return
	}
}

func (s *APIServer) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenHeader := r.Header.Get("Authorization")
		if tokenHeader == "" {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(tokenHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid token format", http.StatusUnauthorized)
			return
		}

		tokenStr := parts[1]

		claims, err := jwt.ParseToken(tokenStr, string(s.jwtSecret))
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		email, ok := claims["email"].(string)
		if !ok || email == "" {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		r = r.WithContext(context.WithValue(r.Context(), ctxEmail, email))
		next(w, r)
	}
}

func (s *APIServer) logoutHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		s.store.Logout()
		w.WriteHeader(http.StatusOK)
	}
}

type WalletResponse struct {
	Balance decimal.Decimal `json:"balance"`
	Email   string          `json:"email"`
	Name    string          `json:"name"`
	Role    string          `json:"role"`
}

func (s *APIServer) walletHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.store.Session()

		err := json.NewEncoder(w).Encode(WalletResponse{
			Balance: s.store.Balance(),
			Email:   session.Email,
			Name:    session.DisplayName,
			Role:    session.Role,
		})
		if err != nil {
			return
		}
	}
}

func (s *APIServer) transactionsHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		transactions := s.store.Transactions()

		if kind := r.URL.Query().Get("kind"); kind != "" {
			filtered := make([]models.Transaction, 0, len(transactions))
			for _, tx := range transactions {
				if tx.Kind == models.TransactionKind(kind) {
					filtered = append(filtered, tx)
				}
			}
			transactions = filtered
		}

		err := json.NewEncoder(w).Encode(transactions)
		if err != nil {
			return
		}
	}
}

type SendRequest struct {
	Recipient   string          `json:"recipient"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (s *APIServer) sendHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request format", http.StatusBadRequest)
			return
		}

		if req.Recipient == "" {
			http.Error(w, "Recipient is required", http.StatusBadRequest)
			return
		}
		if !req.Amount.IsPositive() {
			http.Error(w, "Amount must be positive", http.StatusBadRequest)
			return
		}

		if err := s.store.Debit(req.Amount); err != nil {
			if errors.Is(err, wallet.ErrInsufficientFunds) {
				http.Error(w, "Insufficient funds", http.StatusPaymentRequired)
				return
			}
			http.Error(w, "Failed to update balance", http.StatusInternalServerError)
			return
		}

		description := req.Description
		if description == "" {
			description = "Money sent"
		}

		tx := s.store.AddTransaction(models.Transaction{
			Kind:        models.KindSend,
			Amount:      req.Amount,
			Counterpart: req.Recipient,
			Status:      models.StatusSuccess,
			Description: description,
		})

		s.logger.Info("Send money",
			slog.String("amount", req.Amount.String()),
			slog.String("recipient", req.Recipient),
		)

		err := json.NewEncoder(w).Encode(tx)
		if err != nil {
			return
		}
	}
}

type TopupStartRequest struct {
	Method payme.Method    `json:"method"`
	Amount decimal.Decimal `json:"amount"`
	Phone  string          `json:"phone"`
}

type TopupStateResponse struct {
	State       payme.State         `json:"state"`
	Message     string              `json:"message,omitempty"`
	Widget      *payme.Session      `json:"widget,omitempty"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

func (s *APIServer) topupStartHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TopupStartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request format", http.StatusBadRequest)
			return
		}

		session := s.store.Session()
		err := s.handshake.Begin(r.Context(), payme.Request{
			Method: req.Method,
			Amount: req.Amount,
			Phone:  req.Phone,
			Payer: payme.Identity{
				FullName: session.DisplayName,
				Email:    session.Email,
			},
		})
		if errors.Is(err, payme.ErrAttemptInFlight) {
			http.Error(w, "A payment attempt is already processing", http.StatusConflict)
			return
		}

		s.writeTopupState(w)
	}
}

// topupCompleteHandler takes the widget's completion payload (or its error)
// and finalizes the attempt: on approval the ledger mutation happens here,
// never inside the handshake.
func (s *APIServer) topupCompleteHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Error string `json:"error"`
			payme.CompletionPayload
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request format", http.StatusBadRequest)
			return
		}

		var err error
		if req.Error != "" {
			err = s.bridge.Fail(errors.New(req.Error))
		} else {
			err = s.bridge.Deliver(req.CompletionPayload)
		}
		if errors.Is(err, ErrNoWidgetSession) {
			http.Error(w, "No payment in progress", http.StatusConflict)
			return
		}

		state, message := s.handshake.Status()
		if state != payme.StateApproved {
			s.writeState(w, state, message, nil)
			return
		}

		attempt := s.handshake.Attempt()
		tx := s.store.AddTransaction(models.Transaction{
			Kind:        models.KindTopup,
			Amount:      attempt.Amount,
			Status:      models.StatusSuccess,
			Description: "Wallet top up",
		})
		if err := s.store.Credit(attempt.Amount); err != nil {
			http.Error(w, "Failed to update balance", http.StatusInternalServerError)
			s.logger.Error("Failed to credit approved top-up", "error", err)
			return
		}

		s.logger.Info("Top up approved", slog.String("amount", attempt.Amount.String()))
		s.writeState(w, state, message, &tx)
	}
}

func (s *APIServer) topupRetryHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.handshake.Retry(r.Context()); errors.Is(err, payme.ErrNoDeclinedAttempt) {
			http.Error(w, "No declined payment to retry", http.StatusConflict)
			return
		}
		s.writeTopupState(w)
	}
}

func (s *APIServer) topupMethodHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.handshake.ChangeMethod(); err != nil {
			http.Error(w, "No declined payment to abandon", http.StatusConflict)
			return
		}
		s.writeTopupState(w)
	}
}

func (s *APIServer) writeTopupState(w http.ResponseWriter) {
	state, message := s.handshake.Status()

	var widget *payme.Session
	if state == payme.StateProcessing {
		if session, ok := s.bridge.Material(); ok {
			widget = &session
		}
	}

	res := TopupStateResponse{State: state, Message: message, Widget: widget}
	if err := json.NewEncoder(w).Encode(res); err != nil {
		return
	}
}

func (s *APIServer) writeState(w http.ResponseWriter, state payme.State, message string, tx *models.Transaction) {
	res := TopupStateResponse{State: state, Message: message, Transaction: tx}
	if err := json.NewEncoder(w).Encode(res); err != nil {
		return
	}
}
