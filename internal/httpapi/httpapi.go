// Package httpapi serves the public verifier: anyone holding a revealed seed
// pair can recompute a drop and its payout against the live payout table.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xtding233/plinko-audit/internal/audit"
	"github.com/xtding233/plinko-audit/internal/plinko"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TableSource supplies the current payout table. paytable.Loader satisfies it.
type TableSource interface {
	Table() (*plinko.Table, error)
}

type verifyResp struct {
	Bucket     int     `json:"bucket"`
	Multiplier float64 `json:"multiplier"`
	Payout     float64 `json:"payout"`
	HashMatch  *bool   `json:"hashMatch,omitempty"`
}

type tableResp struct {
	Risk           plinko.Risk `json:"risk"`
	Rows           int         `json:"rows"`
	Multipliers    []float64   `json:"multipliers"`
	Probabilities  []float64   `json:"probabilities"`
	TheoreticalRTP float64     `json:"theoreticalRTP"`
}

type errResp struct {
	Err string `json:"err"`
}

type handler struct {
	tables TableSource
	source plinko.OutcomeSource
	logger *zap.Logger
}

// NewRouter returns the verifier routes. A nil source recomputes every
// request with plinko.HMACGenerator; a nil logger discards request logs.
func NewRouter(tables TableSource, source plinko.OutcomeSource, logger *zap.Logger) http.Handler {
	if source == nil {
		source = plinko.HMACGenerator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{tables: tables, source: source, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		MaxAge:         60 * 15,
	}))

	r.Get("/healthz", h.healthz)
	r.Get("/verify", h.verify)
	r.Get("/tables/{risk}/{rows}", h.table)
	return r
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pair := plinko.SeedPair{
		ServerSeed:       q.Get("server_seed"),
		ServerSeedHashed: q.Get("server_seed_hashed"),
		ClientSeed:       q.Get("client_seed"),
	}
	if pair.ServerSeed == "" {
		writeErr(w, http.StatusBadRequest, "missing param server_seed")
		return
	}
	if pair.ClientSeed == "" {
		writeErr(w, http.StatusBadRequest, "missing param client_seed")
		return
	}
	nonce, ok, msg := parseUint(r, "nonce")
	if !ok {
		writeErr(w, http.StatusBadRequest, missing("nonce", msg))
		return
	}
	rows, ok, msg := parseInt(r, "rows")
	if !ok {
		writeErr(w, http.StatusBadRequest, missing("rows", msg))
		return
	}
	risk, err := plinko.ParseRisk(q.Get("risk"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	bet, has, msg := parseFloat(r, "bet")
	if msg != "" {
		writeErr(w, http.StatusBadRequest, msg)
		return
	}
	if !has {
		bet = 1
	}

	table, err := h.tables.Table()
	if err != nil {
		h.logger.Error("payout table unavailable", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "payout table unavailable")
		return
	}

	bucket, err := h.source.Outcome(pair.ServerSeed, pair.ClientSeed, nonce, rows)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	multiplier, err := table.Multiplier(risk, rows, bucket)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	payout, err := table.Resolve(bet, bucket, rows, risk)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := verifyResp{Bucket: bucket, Multiplier: multiplier, Payout: payout}
	if pair.ServerSeedHashed != "" {
		match := len(audit.Commitments([]plinko.Bet{{SeedPair: pair, Nonce: nonce}})) == 0
		resp.HashMatch = &match
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) table(w http.ResponseWriter, r *http.Request) {
	risk, err := plinko.ParseRisk(chi.URLParam(r, "risk"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := strconv.Atoi(chi.URLParam(r, "rows"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid rows")
		return
	}

	table, err := h.tables.Table()
	if err != nil {
		h.logger.Error("payout table unavailable", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "payout table unavailable")
		return
	}
	multipliers, err := table.Multipliers(risk, rows)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	rtp, err := table.TheoreticalRTP(risk, rows)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	probs := make([]float64, rows+1)
	for k := range probs {
		probs[k] = plinko.BucketProbability(rows, k)
	}
	writeJSON(w, http.StatusOK, tableResp{
		Risk:           risk,
		Rows:           rows,
		Multipliers:    multipliers,
		Probabilities:  probs,
		TheoreticalRTP: rtp,
	})
}

func missing(key, msg string) string {
	if msg != "" {
		return msg
	}
	return "missing param " + key
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Err: msg})
}
