package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
)

func (s *Server) handleRoot(r *http.Request) (interface{}, *HandlerError) {
	return map[string]string{"service": "cadcoin-ledger", "status": "running"}, nil
}

func (s *Server) handleHealth(r *http.Request) (interface{}, *HandlerError) {
	if _, err := s.ledger.ChainInfo(r.Context()); err != nil {
		return nil, NewHandlerError(http.StatusInternalServerError, "unhealthy")
	}
	return map[string]string{"status": "ok"}, nil
}

func (s *Server) handleInfo(r *http.Request) (interface{}, *HandlerError) {
	info, err := s.ledger.ChainInfo(r.Context())
	if err != nil {
		return nil, classify(err)
	}
	return info, nil
}

func (s *Server) handleChain(r *http.Request) (interface{}, *HandlerError) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	blocks, err := s.ledger.Blocks(r.Context(), limit, offset)
	if err != nil {
		return nil, classify(err)
	}
	return map[string]interface{}{"blocks": blocks}, nil
}

func (s *Server) handleBalances(r *http.Request) (interface{}, *HandlerError) {
	address := mux.Vars(r)["address"]
	balances, err := s.ledger.Balances(r.Context(), address)
	if err != nil {
		return nil, classify(err)
	}
	out := make(map[string]float64, len(balances))
	for coin, amt := range balances {
		out[coin] = amt.ToFloat()
	}
	return map[string]interface{}{"address": address, "balances": out}, nil
}

func (s *Server) handleBalance(r *http.Request) (interface{}, *HandlerError) {
	vars := mux.Vars(r)
	bal, err := s.ledger.Balance(r.Context(), vars["address"], vars["coin"])
	if err != nil {
		return nil, classify(err)
	}
	return map[string]interface{}{
		"address": vars["address"], "coin_type": vars["coin"], "balance": bal.ToFloat(),
	}, nil
}

func (s *Server) handlePendingTransactions(r *http.Request) (interface{}, *HandlerError) {
	limit := queryInt(r, "limit", 100)
	entries, err := s.ledger.Pool.PendingList(r.Context(), limit)
	if err != nil {
		return nil, classify(err)
	}
	return map[string]interface{}{"pending_transactions": entries}, nil
}

func (s *Server) handleStableCoins(r *http.Request) (interface{}, *HandlerError) {
	coins, err := s.ledger.Store.ListStablecoins(r.Context())
	if err != nil {
		return nil, classify(err)
	}
	return map[string]interface{}{"stable_coins": coins}, nil
}

func (s *Server) handleValidateChain(r *http.Request) (interface{}, *HandlerError) {
	depth := queryInt(r, "depth", 0)
	valid, message, err := s.ledger.ValidateChain(r.Context(), depth)
	if err != nil {
		return nil, classify(err)
	}
	return map[string]interface{}{"valid": valid, "message": message}, nil
}

func (s *Server) handleMiningStats(r *http.Request) (interface{}, *HandlerError) {
	stats, err := s.ledger.MiningStats(r.Context())
	if err != nil {
		return nil, classify(err)
	}
	return stats, nil
}

type registerRequest struct {
	Address  string `json:"address"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(r *http.Request) (interface{}, *HandlerError) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, NewHandlerError(http.StatusBadRequest, "invalid request body")
	}
	if req.Address == "" || req.Password == "" {
		return nil, NewHandlerError(http.StatusBadRequest, "address and password required")
	}
	if err := s.auth.Register(r.Context(), req.Address, req.Password); err != nil {
		return nil, classify(err)
	}
	return map[string]interface{}{"message": "User created", "initial_reputation": 100}, nil
}

func (s *Server) handleLogin(r *http.Request) (interface{}, *HandlerError) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, NewHandlerError(http.StatusBadRequest, "invalid request body")
	}
	result, err := s.auth.Login(r.Context(), req.Address, req.Password)
	if err != nil {
		return nil, classify(err)
	}
	return map[string]interface{}{
		"token": result.Token, "address": req.Address, "reputation_score": result.ReputationScore,
	}, nil
}

type transactionRequest struct {
	Receiver string   `json:"receiver"`
	Amount   float64  `json:"amount"`
	Fee      *float64 `json:"fee,omitempty"`
	CoinType string   `json:"coin_type"`
}

func (s *Server) handleTransaction(r *http.Request) (interface{}, *HandlerError) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, NewHandlerError(http.StatusBadRequest, "invalid request body")
	}
	coinType := req.CoinType
	if coinType == "" {
		coinType = "CAD-COIN"
	}
	amount, err := ledgertypes.NewAmountFromFloat(req.Amount)
	if err != nil {
		return nil, NewHandlerError(http.StatusBadRequest, "invalid amount")
	}
	var fee *ledgertypes.Amount
	if req.Fee != nil {
		f, err := ledgertypes.NewAmountFromFloat(*req.Fee)
		if err != nil {
			return nil, NewHandlerError(http.StatusBadRequest, "invalid fee")
		}
		fee = &f
	}

	sender := authenticatedAddress(r)
	txn, err := s.ledger.SubmitTransaction(r.Context(), sender, req.Receiver, amount, fee, coinType)
	if err != nil {
		return nil, classify(err)
	}
	return map[string]interface{}{"message": "Transaction accepted", "transaction": txn.ToWire()}, nil
}

func (s *Server) handleMine(r *http.Request) (interface{}, *HandlerError) {
	miner := authenticatedAddress(r)
	result, err := s.ledger.Mine(r.Context(), miner)
	if err != nil {
		return nil, classify(err)
	}
	return map[string]interface{}{
		"message":     "Block mined",
		"index":       result.Block.Index,
		"hash":        result.Block.Hash,
		"nonce":       result.Block.Nonce,
		"mining_time": result.Block.MiningTime,
	}, nil
}

type createStableCoinRequest struct {
	Symbol          string   `json:"symbol"`
	Name            string   `json:"name"`
	CollateralRatio float64  `json:"collateral_ratio"`
	BackedBy        string   `json:"backed_by"`
	MaxSupply       *float64 `json:"max_supply,omitempty"`
}

func (s *Server) handleCreateStableCoin(r *http.Request) (interface{}, *HandlerError) {
	var req createStableCoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, NewHandlerError(http.StatusBadRequest, "invalid request body")
	}
	var maxSupply *ledgertypes.Amount
	if req.MaxSupply != nil {
		amt, err := ledgertypes.NewAmountFromFloat(*req.MaxSupply)
		if err != nil {
			return nil, NewHandlerError(http.StatusBadRequest, "invalid max_supply")
		}
		maxSupply = &amt
	}
	if err := s.ledger.Stable.Create(r.Context(), req.Symbol, req.Name, req.CollateralRatio, req.BackedBy, maxSupply); err != nil {
		return nil, classify(err)
	}
	return map[string]interface{}{"message": "Stablecoin created", "symbol": strings.ToUpper(req.Symbol)}, nil
}

type mintRequest struct {
	Symbol   string  `json:"symbol"`
	Receiver string  `json:"receiver"`
	Amount   float64 `json:"amount"`
}

func (s *Server) handleMint(r *http.Request) (interface{}, *HandlerError) {
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, NewHandlerError(http.StatusBadRequest, "invalid request body")
	}
	amount, err := ledgertypes.NewAmountFromFloat(req.Amount)
	if err != nil {
		return nil, NewHandlerError(http.StatusBadRequest, "invalid amount")
	}
	minter := authenticatedAddress(r)
	txn, err := s.ledger.Stable.Mint(r.Context(), req.Symbol, minter, req.Receiver, amount)
	if err != nil {
		return nil, classify(err)
	}
	return map[string]interface{}{"message": "Mint enqueued", "transaction": txn.ToWire()}, nil
}

type authorizeMinterRequest struct {
	Symbol string `json:"symbol"`
	Minter string `json:"minter"`
}

func (s *Server) handleAuthorizeMinter(r *http.Request) (interface{}, *HandlerError) {
	var req authorizeMinterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, NewHandlerError(http.StatusBadRequest, "invalid request body")
	}
	authorizer := authenticatedAddress(r)
	if err := s.ledger.Stable.AuthorizeMinter(r.Context(), req.Symbol, req.Minter, authorizer); err != nil {
		return nil, classify(err)
	}
	return map[string]interface{}{"message": "Minter authorized"}, nil
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
