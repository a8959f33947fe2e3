package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/websocket"

	"oracle-panel/internal/contract"
	"oracle-panel/internal/display"
	"oracle-panel/internal/fault"
	"oracle-panel/internal/session"
	"oracle-panel/internal/submitter"
)

const maxBody = 64 << 10

// operation runs one submitter action.
type operation func(sub *submitter.Submitter, ctx context.Context) (submitter.Result, error)

// StateResponse is the body of GET /api/state.
type StateResponse struct {
	display.State
	SessionID string `json:"session_id,omitempty"`
	Account   string `json:"account,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Admin     bool   `json:"admin"`
	Paused    bool   `json:"paused"`
}

// ResultResponse is the body of a successful operation.
type ResultResponse struct {
	Op     string `json:"op"`
	Sent   bool   `json:"sent"`
	TxHash string `json:"tx_hash,omitempty"`
	Status string `json:"status"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Kind   string   `json:"kind,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

func (s *Server) router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/packs", s.form(submitter.OpUpdatePacks, packFields(), (*submitter.Submitter).UpdatePacks))
	mux.HandleFunc("POST /api/eth-range", s.form(submitter.OpUpdateEthRange, fieldSet(display.FieldPriceEthMin, display.FieldPriceEthMax), (*submitter.Submitter).UpdateEthRange))
	mux.HandleFunc("POST /api/other-values", s.form(submitter.OpUpdateOtherValues, fieldSet(display.OtherValueFields...), (*submitter.Submitter).UpdateOtherValues))
	mux.HandleFunc("POST /api/admins", s.form(submitter.OpAddAdmin, fieldSet(display.FieldAddressAdmin), (*submitter.Submitter).AddAdmin))
	mux.HandleFunc("POST /api/pause", s.action((*submitter.Submitter).TogglePause))
	mux.HandleFunc("POST /api/next-process", s.action((*submitter.Submitter).NextProcess))
	mux.HandleFunc("POST /api/reload", s.handleReload)
	mux.HandleFunc("GET /ws", s.handleWS)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

func packFields() map[string]struct{} {
	var fields []string
	for n := 1; n <= contract.Tiers; n++ {
		fields = append(fields, display.PointsMin(n), display.PointsMax(n), display.PriceMin(n), display.PriceMax(n))
	}
	return fieldSet(fields...)
}

func fieldSet(fields ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{State: s.board.Snapshot()}
	err := s.manager.Do(r.Context(), func(_ context.Context, sess *session.Session) error {
		gate := sess.Gate()
		resp.SessionID = sess.ID.String()
		resp.Account = sess.Account.Hex()
		resp.Owner = gate.Owner().Hex()
		resp.Admin = gate.IsAdmin()
		resp.Paused = gate.Paused()
		return nil
	})
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// form stores the posted fields into the board and runs op, both under the
// session lock so no event reload can overwrite the inputs in between.
func (s *Server) form(name string, allowed map[string]struct{}, op operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var inputs map[string]string
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&inputs); err != nil {
			s.writeError(w, fault.Validation(name, fmt.Sprintf("decode body: %v", err)))
			return
		}
		var unknown []string
		for field := range inputs {
			if _, ok := allowed[field]; !ok {
				unknown = append(unknown, field)
			}
		}
		if len(unknown) > 0 {
			s.writeError(w, fault.Validation(name, "unknown fields", unknown...))
			return
		}

		s.run(w, r, func(ctx context.Context, sess *session.Session) (submitter.Result, error) {
			for field, value := range inputs {
				s.board.Set(field, value)
			}
			return op(sess.Submitter(), ctx)
		})
	}
}

func (s *Server) action(op operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.run(w, r, func(ctx context.Context, sess *session.Session) (submitter.Result, error) {
			return op(sess.Submitter(), ctx)
		})
	}
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, sess *session.Session) (submitter.Result, error)) {
	var res submitter.Result
	err := s.manager.Do(r.Context(), func(ctx context.Context, sess *session.Session) error {
		var err error
		res, err = fn(ctx, sess)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{Op: res.Op, Sent: res.Sent, TxHash: res.TxHash, Status: s.board.Status()})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Restart(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{Op: "reload", Status: s.board.Status()})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	s.keeper.addConn(conn)
	go s.keeper.keep(conn)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	var fe *fault.Error
	if errors.As(err, &fe) {
		resp.Kind = string(fe.Kind)
		resp.Fields = fe.Fields
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch fault.KindOf(err) {
	case fault.KindValidation:
		return http.StatusBadRequest
	case fault.KindAccess, fault.KindCircuit:
		return http.StatusForbidden
	case fault.KindSubmission:
		return http.StatusBadGateway
	case fault.KindRead, fault.KindConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
