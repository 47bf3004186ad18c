package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/artic-network/peartree/pkg/cache"
	apperrors "github.com/artic-network/peartree/pkg/errors"
	"github.com/artic-network/peartree/pkg/nexus"
	"github.com/artic-network/peartree/pkg/phylo"
	"github.com/artic-network/peartree/pkg/pipeline"
	"github.com/artic-network/peartree/pkg/session"
)

// =============================================================================
// Requests & Responses
// =============================================================================

type createSessionRequest struct {
	Source    string `json:"source,omitempty"` // tree text, or
	URL       string `json:"url,omitempty"`    // remote location to fetch
	Name      string `json:"name,omitempty"`
	TreeIndex int    `json:"tree_index,omitempty"`
}

type nodeRequest struct {
	Node int `json:"node"`
}

type rerootRequest struct {
	Node int     `json:"node"`
	Dist float64 `json:"dist"`
}

type orderRequest struct {
	Direction string `json:"direction"` // ascending or descending
}

type rotateRequest struct {
	Node      int  `json:"node"`
	Recursive bool `json:"recursive,omitempty"`
}

type paintRequest struct {
	Node   int    `json:"node"`
	Colour string `json:"colour"`
}

type viewRequest struct {
	Node int `json:"node"` // -1 returns to the entire tree
}

// sessionResponse is the session envelope returned by every endpoint that
// touches session state. The source text itself is never echoed back.
type sessionResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name,omitempty"`
	TreeIndex int               `json:"tree_index,omitempty"`
	Nodes     int               `json:"nodes"`
	Tips      int               `json:"tips"`
	Rooted    bool              `json:"rooted"`
	State     session.ViewState `json:"state"`
	ExpiresAt string            `json:"expires_at"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// Session Lifecycle
// =============================================================================

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	source := req.Source
	if source == "" && req.URL != "" {
		data, err := s.fetcher.Fetch(r.Context(), req.URL)
		if err != nil {
			s.writeError(w, err)
			return
		}
		source = string(data)
	}
	if source == "" {
		s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "source or url is required"))
		return
	}

	// Parse once up front so a malformed tree fails the open, not every
	// later read.
	g, err := pipeline.Load(pipeline.Options{Source: source, TreeIndex: req.TreeIndex})
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidTree, err, "parse tree"))
		return
	}

	sess, err := session.New(source, s.sessionTTL())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess.ID = uuid.NewString()
	sess.Name = req.Name
	sess.TreeIndex = req.TreeIndex

	if err := s.store.Set(r.Context(), sess); err != nil {
		s.writeError(w, err)
		return
	}

	activeSessions.Inc()
	s.logger.Info("session opened", "id", sess.ID, "nodes", g.NodeCount(), "tips", g.TipCount())
	s.writeJSON(w, http.StatusCreated, sessionEnvelope(sess, g))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, g, err := s.loadSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionEnvelope(sess, g))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	// Deleting is idempotent; only a session that actually existed moves
	// the gauge.
	if sess != nil {
		activeSessions.Dec()
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Reads
// =============================================================================

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	sess, g, err := s.loadSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	opts := s.pipelineOptions(sess)
	if err := pipeline.Mutate(g, opts); err != nil {
		s.writeError(w, err)
		return
	}

	treeHash := cache.Hash([]byte(pipeline.Canonical(g)))
	layout, err := s.runner.Layout(r.Context(), g, treeHash, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, layout)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	_, g, err := s.loadSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, g.Schema)
}

var artifactContentTypes = map[string]string{
	pipeline.FormatSVG:    "image/svg+xml",
	pipeline.FormatPNG:    "image/png",
	pipeline.FormatDOT:    "text/vnd.graphviz",
	pipeline.FormatJSON:   "application/json",
	pipeline.FormatNewick: "text/plain; charset=utf-8",
	pipeline.FormatNexus:  "text/plain; charset=utf-8",
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	sess, _, err := s.loadSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "artifact format"))
		return
	}

	opts := s.pipelineOptions(sess)
	opts.Formats = []string{format}
	opts.ColourBy = r.URL.Query().Get("colour_by")
	opts.Labels = r.URL.Query().Get("labels") == "true"
	opts.BranchLengths = r.URL.Query().Get("branch_lengths") == "true"

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", artifactContentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[format])
}

// =============================================================================
// View Edits
//
// These update the session state only; the tree source is untouched and the
// edit is replayed on every read.
// =============================================================================

func (s *Server) handleMidpoint(w http.ResponseWriter, r *http.Request) {
	s.updateState(w, r, func(sess *session.Session, g *phylo.Graph) error {
		if _, _, err := g.Midpoint(); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInvalidTree, err, "midpoint")
		}
		sess.State.Midpoint = true
		sess.State.Reroot = false
		return nil
	})
}

func (s *Server) handleReroot(w http.ResponseWriter, r *http.Request) {
	var req rerootRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.updateState(w, r, func(sess *session.Session, g *phylo.Graph) error {
		if _, ok := g.NodeByID(req.Node); !ok {
			return apperrors.New(apperrors.ErrCodeNodeNotFound, "unknown node: %d", req.Node)
		}
		sess.State.Midpoint = false
		sess.State.Reroot = true
		sess.State.RerootID = req.Node
		sess.State.RerootDist = req.Dist
		return nil
	})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.updateState(w, r, func(sess *session.Session, _ *phylo.Graph) error {
		switch req.Direction {
		case pipeline.OrderAscending, pipeline.OrderDescending, "":
			sess.State.Order = req.Direction
			return nil
		default:
			return apperrors.New(apperrors.ErrCodeInvalidInput, "invalid direction: %q", req.Direction)
		}
	})
}

func (s *Server) handleHide(w http.ResponseWriter, r *http.Request) {
	var req nodeRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.updateState(w, r, func(sess *session.Session, g *phylo.Graph) error {
		if _, ok := g.NodeByID(req.Node); !ok {
			return apperrors.New(apperrors.ErrCodeNodeNotFound, "unknown node: %d", req.Node)
		}
		// The visible-tips check depends on where the root is, so the
		// session's rooting edit must be replayed first; reads do the
		// same through Mutate.
		if err := replayRooting(sess, g); err != nil {
			return err
		}
		g.SetHidden(sess.State.Hidden)
		if !g.CanHide(req.Node) {
			return apperrors.New(apperrors.ErrCodeInvalidInput, "hiding node %d would leave no visible tips on one side of the root", req.Node)
		}
		g.Hide(req.Node)
		sess.State.Hidden = g.HiddenIDs()
		return nil
	})
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	var req nodeRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.updateState(w, r, func(sess *session.Session, g *phylo.Graph) error {
		g.SetHidden(sess.State.Hidden)
		g.Show(req.Node)
		sess.State.Hidden = g.HiddenIDs()
		return nil
	})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.updateState(w, r, func(sess *session.Session, g *phylo.Graph) error {
		if req.Node != phylo.EntireTree {
			if _, ok := g.NodeByID(req.Node); !ok {
				return apperrors.New(apperrors.ErrCodeNodeNotFound, "unknown node: %d", req.Node)
			}
		}
		sess.State.View = req.Node
		return nil
	})
}

// =============================================================================
// Durable Edits
//
// Rotation and painting rewrite the session's source text, so they persist
// regardless of later view-state changes.
// =============================================================================

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	var req rotateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.rewriteSource(w, r, func(sess *session.Session, g *phylo.Graph) error {
		if _, ok := g.NodeByID(req.Node); !ok {
			return apperrors.New(apperrors.ErrCodeNodeNotFound, "unknown node: %d", req.Node)
		}
		g.Rotate(req.Node, req.Recursive)
		// A manual rotation and a clade-size ordering cannot both hold.
		sess.State.Order = ""
		return nil
	})
}

func (s *Server) handlePaint(w http.ResponseWriter, r *http.Request) {
	var req paintRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := apperrors.ValidateColour(req.Colour); err != nil {
		s.writeError(w, err)
		return
	}
	s.rewriteSource(w, r, func(sess *session.Session, g *phylo.Graph) error {
		if _, ok := g.NodeByID(req.Node); !ok {
			return apperrors.New(apperrors.ErrCodeNodeNotFound, "unknown node: %d", req.Node)
		}
		g.Paint(req.Node, req.Colour)
		if sess.State.Paints == nil {
			sess.State.Paints = make(map[string]string)
		}
		sess.State.Paints[strconv.Itoa(req.Node)] = req.Colour
		return nil
	})
}

func (s *Server) handleClearColours(w http.ResponseWriter, r *http.Request) {
	s.rewriteSource(w, r, func(sess *session.Session, g *phylo.Graph) error {
		g.ClearColours()
		sess.State.Paints = nil
		return nil
	})
}

// =============================================================================
// Helpers
// =============================================================================

// loadSession fetches the session named in the URL and parses its tree.
func (s *Server) loadSession(r *http.Request) (*session.Session, *phylo.Graph, error) {
	id := chi.URLParam(r, "sessionID")
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, apperrors.New(apperrors.ErrCodeSessionNotFound, "session %s not found", id)
	}

	g, err := s.runner.Load(r.Context(), pipeline.Options{Source: sess.Source, TreeIndex: sess.TreeIndex})
	if err != nil {
		return nil, nil, err
	}
	return sess, g, nil
}

// replayRooting applies the session's midpoint or reroot edit to a freshly
// parsed graph, so root-dependent checks see the same tree the reads see.
func replayRooting(sess *session.Session, g *phylo.Graph) error {
	st := sess.State
	return pipeline.Mutate(g, pipeline.Options{
		Midpoint:   st.Midpoint,
		Reroot:     st.Reroot,
		RerootID:   st.RerootID,
		RerootDist: st.RerootDist,
	})
}

// pipelineOptions translates session state to pipeline options.
func (s *Server) pipelineOptions(sess *session.Session) pipeline.Options {
	st := sess.State
	return pipeline.Options{
		Source:     sess.Source,
		TreeIndex:  sess.TreeIndex,
		Midpoint:   st.Midpoint,
		Reroot:     st.Reroot,
		RerootID:   st.RerootID,
		RerootDist: st.RerootDist,
		Order:      st.Order,
		Hidden:     st.Hidden,
		View:       st.View,
	}
}

// updateState applies a view-state edit, persists the session and returns
// the updated envelope.
func (s *Server) updateState(w http.ResponseWriter, r *http.Request, edit func(*session.Session, *phylo.Graph) error) {
	sess, g, err := s.loadSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := edit(sess, g); err != nil {
		s.writeError(w, err)
		return
	}

	sess.Touch(s.sessionTTL())
	if err := s.store.Set(r.Context(), sess); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionEnvelope(sess, g))
}

// rewriteSource applies a durable edit and re-serializes the tree as the
// session's new source. Rooted trees are written back as NEXUS so the
// rooting statement survives the round trip; the tree index resets to zero
// because the rewritten source holds exactly one tree.
func (s *Server) rewriteSource(w http.ResponseWriter, r *http.Request, edit func(*session.Session, *phylo.Graph) error) {
	sess, g, err := s.loadSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := edit(sess, g); err != nil {
		s.writeError(w, err)
		return
	}

	if g.Rooted {
		var buf bytes.Buffer
		t := nexus.Tree{Name: "tree1", Root: g.Tree(), Rooted: true}
		if err := nexus.Write(&buf, []nexus.Tree{t}); err != nil {
			s.writeError(w, err)
			return
		}
		sess.Source = buf.String()
	} else {
		sess.Source = pipeline.Canonical(g)
	}
	sess.TreeIndex = 0

	sess.Touch(s.sessionTTL())
	if err := s.store.Set(r.Context(), sess); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionEnvelope(sess, g))
}

func sessionEnvelope(sess *session.Session, g *phylo.Graph) sessionResponse {
	return sessionResponse{
		ID:        sess.ID,
		Name:      sess.Name,
		TreeIndex: sess.TreeIndex,
		Nodes:     g.NodeCount(),
		Tips:      g.TipCount(),
		Rooted:    g.Rooted,
		State:     sess.State,
		ExpiresAt: sess.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= 500 {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, errorResponse{
		Error: apperrors.UserMessage(err),
		Code:  string(apperrors.GetCode(err)),
	})
}

func statusForError(err error) int {
	var rl *apperrors.RateLimitedError
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests
	}

	code := apperrors.GetCode(err)
	switch {
	case code == apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case strings.HasSuffix(string(code), "NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(string(code), "INVALID"):
		return http.StatusBadRequest
	case code == apperrors.ErrCodeTimeout, code == apperrors.ErrCodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
