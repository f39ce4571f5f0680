// Package httpapi exposes the ledger over HTTP for long-lived deployments.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sheikh-saqib/payments-ledger-engine/internal/ledger"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/projection"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/sequence"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Server struct {
	ledger *ledger.Ledger
	seq    *sequence.Sequencer
	logger *zap.Logger
}

func NewServer(l *ledger.Ledger, seq *sequence.Sequencer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{ledger: l, seq: seq, logger: logger}
}

// Handler routes the ledger endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /events", s.postEvent)
	mux.HandleFunc("GET /accounts", s.listAccounts)
	mux.HandleFunc("GET /accounts/balance", s.accountBalance)
	mux.HandleFunc("GET /accounts/{client}/transactions/{tx}", s.transactionHistory)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type eventRequest struct {
	Kind      models.Kind     `json:"type"`
	AccountID uint16          `json:"client"`
	TxID      uint32          `json:"tx"`
	Amount    decimal.Decimal `json:"amount"`
}

type eventResponse struct {
	Status   string `json:"status"`
	Sequence uint64 `json:"sequence"`
	Reason   string `json:"reason,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Debug("bad event request", zap.Error(err))
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Kind == 0 {
		http.Error(w, "type is a mandatory field", http.StatusBadRequest)
		return
	}

	// The ordinal is assigned under the account lock so that concurrent
	// requests for one account are numbered in the order they were applied.
	ev, err := s.ledger.IngestStamped(r.Context(), models.TransactionEvent{
		Kind:      req.Kind,
		AccountID: req.AccountID,
		TxID:      req.TxID,
		Amount:    models.NormalizeAmount(req.Amount),
	}, s.seq)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, eventResponse{Status: "accepted", Sequence: ev.Sequence})
	case ledger.IsInternal(err):
		writeJSON(w, http.StatusInternalServerError, eventResponse{Status: "dropped", Sequence: ev.Sequence, Reason: errors.Unwrap(err).Error()})
	default:
		writeJSON(w, http.StatusConflict, eventResponse{Status: "rejected", Sequence: ev.Sequence, Reason: errors.Unwrap(err).Error()})
	}
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, projection.ToJSON(s.ledger.Snapshot()))
}

func parseClient(v string) (uint16, error) {
	id, err := strconv.ParseUint(v, 10, 16)
	return uint16(id), err
}

func (s *Server) accountBalance(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("client")
	if raw == "" {
		http.Error(w, "client is a mandatory field", http.StatusBadRequest)
		return
	}
	client, err := parseClient(raw)
	if err != nil {
		http.Error(w, "invalid client id", http.StatusBadRequest)
		return
	}

	balance, ok := s.ledger.Account(client)
	if !ok {
		http.Error(w, "unknown client", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, projection.BalanceJSON(balance))
}

type historyResponse struct {
	Client uint16                    `json:"client"`
	Tx     uint32                    `json:"tx"`
	Stage  string                    `json:"stage"`
	Events []models.TransactionEvent `json:"events"`
}

func (s *Server) transactionHistory(w http.ResponseWriter, r *http.Request) {
	client, err := parseClient(r.PathValue("client"))
	if err != nil {
		http.Error(w, "invalid client id", http.StatusBadRequest)
		return
	}
	tx, err := strconv.ParseUint(r.PathValue("tx"), 10, 32)
	if err != nil {
		http.Error(w, "invalid tx id", http.StatusBadRequest)
		return
	}

	h, ok := s.ledger.History(client, uint32(tx))
	if !ok {
		http.Error(w, "unknown transaction", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Client: client,
		Tx:     uint32(tx),
		Stage:  h.Stage.String(),
		Events: h.Events,
	})
}
