package api

import (
	"go.wheelz.io/wchain/httprouter"
	"go.wheelz.io/wchain/httprouter/apirest"
)

func (a *API) enableHealthHandlers() error {
	return a.Endpoint.RegisterMethod(
		"/health",
		"GET",
		apirest.MethodAccessTypePublic,
		a.healthHandler,
	)
}

// healthHandler
//
// GET /health
// Probes every attached store and broker. Status is "ok" only when all the
// attached dependencies answer.
func (a *API) healthHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	resp := HealthResponse{ChainStore: true, StateStore: true, Queue: true}
	if a.chainStore != nil {
		resp.ChainStore = a.chainStore.IsRunning()
	}
	if a.indexer != nil {
		resp.StateStore = a.indexer.Store().Ping(ctx.Request.Context()) == nil
	}
	if a.inbound != nil {
		resp.Queue = a.inbound.Ping(ctx.Request.Context()) == nil
	}
	resp.Status = "ok"
	if !resp.ChainStore || !resp.StateStore || !resp.Queue {
		resp.Status = "degraded"
	}
	return marshalAndSend(ctx, resp)
}
