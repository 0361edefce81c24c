package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dan9191/bank-account/internal/account"
	"github.com/Dan9191/bank-account/internal/config"
	"github.com/Dan9191/bank-account/internal/middleware"
	"github.com/Dan9191/bank-account/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// NewRouter wires the public and token-protected routes
func NewRouter(h *Handler, cfg *config.Config) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)

	authRouter := r.PathPrefix("/accounts").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("", h.CreateAccount).Methods(http.MethodPost)
	authRouter.HandleFunc("/{id}", h.GetAccount).Methods(http.MethodGet)
	authRouter.HandleFunc("/{id}/deposit", h.Deposit).Methods(http.MethodPost)
	authRouter.HandleFunc("/{id}/withdraw", h.Withdraw).Methods(http.MethodPost)
	authRouter.HandleFunc("/{id}/transfer", h.Transfer).Methods(http.MethodPost)
	authRouter.HandleFunc("/{id}/sync", h.Synchronize).Methods(http.MethodPost)
	return r
}

type loginRequest struct {
	Password string `json:"password"`
}

type createAccountRequest struct {
	Balance float64 `json:"balance"`
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

type transferRequest struct {
	Amount   float64 `json:"amount"`
	TargetID string  `json:"target_id"`
}

// Login exchanges the operator password for a token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.svc.Login(req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// CreateAccount opens an account
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	acc, err := h.svc.CreateAccount(r.Context(), req.Balance)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, acc)
}

// GetAccount returns an account balance
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.GetAccount(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, acc)
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	acc, err := h.svc.Deposit(r.Context(), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, acc)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	acc, err := h.svc.Withdraw(r.Context(), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, acc)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}
	from, to, err := h.svc.Transfer(r.Context(), mux.Vars(r)["id"], req.TargetID, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"source": from, "target": to})
}

// Synchronize overwrites the balance with the balance source's value
func (h *Handler) Synchronize(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.Synchronize(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, acc)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.requestLogger(r).Warnf("Invalid request body: %v", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, account.ErrInvalidAmount), errors.Is(err, account.ErrTransferFailed):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, account.ErrInsufficientFunds):
		status = http.StatusConflict
	case errors.Is(err, account.ErrSynchronizationFailed):
		status = http.StatusBadGateway
	}
	h.requestLogger(r).WithField("status", status).Warnf("Request failed: %v", err)
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to write response: %v", err)
	}
}

// requestLogger tags entries with the route and, behind AuthMiddleware, the token subject
func (h *Handler) requestLogger(r *http.Request) *logrus.Entry {
	entry := h.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path})
	if sub, ok := middleware.SubjectFromContext(r.Context()); ok {
		entry = entry.WithField("subject", sub)
	}
	return entry
}
