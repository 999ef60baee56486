// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package derived

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anchorgraph/corestack/internal/platform/apperr"
	requestutil "github.com/anchorgraph/corestack/internal/platform/request"
	"github.com/anchorgraph/corestack/internal/platform/respond"
	"github.com/anchorgraph/corestack/internal/platform/tslock"
	"github.com/anchorgraph/corestack/internal/platform/validate"
)

// Handler is the chi handler surface over an [Engine] and its [MetadataStore].
type Handler struct {
	metadata MetadataStore
	engine   *Engine
	locker   *tslock.Locker
}

// NewHandler constructs a Handler.
func NewHandler(metadata MetadataStore, engine *Engine, locker *tslock.Locker) *Handler {
	return &Handler{metadata: metadata, engine: engine, locker: locker}
}

// RegisterRoutes mounts every derived-quantity endpoint onto router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/", handler.initDerived)
	router.Post("/{id}/update", handler.updateNode)
	router.Get("/{id}/validate", handler.validateNode)
}

type initDerivedRequest struct {
	NodeID   string   `json:"node_id"`
	AgentID  string   `json:"agent_id"`
	AgentURL string   `json:"agent_url"`
	Inputs   []string `json:"inputs"`
	Time     *int64   `json:"time,omitempty"`
}

func (handler *Handler) initDerived(writer http.ResponseWriter, request *http.Request) {
	var body initDerivedRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.Required("node_id", body.NodeID).IRI("node_id", body.NodeID)
	v.Required("agent_id", body.AgentID).IRI("agent_id", body.AgentID)
	v.Required("agent_url", body.AgentURL)
	v.NotEmptySlice("inputs", body.Inputs)
	v.IRISlice("inputs", body.Inputs)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	spec := InitSpec{NodeID: body.NodeID, AgentID: body.AgentID, AgentURL: body.AgentURL, Inputs: body.Inputs, Time: body.Time}
	if err := handler.metadata.Init(request.Context(), spec); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, spec)
}

// updateNode acquires the distributed per-node-id lock before calling
// Engine.Update, operationalizing the caller-serialization requirement the
// engine itself does not enforce.
func (handler *Handler) updateNode(writer http.ResponseWriter, request *http.Request) {
	nodeID := requestutil.ID(request, "id")

	lock, err := handler.locker.Acquire(request.Context(), nodeID)
	if err != nil {
		if errors.Is(err, tslock.ErrLocked) {
			respond.Error(writer, request, apperr.Conflict("node "+nodeID+" is already being updated"))
			return
		}
		respond.Error(writer, request, err)
		return
	}
	defer lock.Release(request.Context())

	if err := handler.engine.Update(request.Context(), nodeID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) validateNode(writer http.ResponseWriter, request *http.Request) {
	nodeID := requestutil.ID(request, "id")

	valid, err := handler.engine.Validate(request.Context(), nodeID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]bool{"valid": valid})
}
