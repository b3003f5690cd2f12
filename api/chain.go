package api

import (
	"errors"

	"go.wheelz.io/wchain/chain"
	"go.wheelz.io/wchain/httprouter"
	"go.wheelz.io/wchain/httprouter/apirest"
	"go.wheelz.io/wchain/metrics"
	"go.wheelz.io/wchain/types"
)

func (a *API) enableChainHandlers() error {
	if err := a.Endpoint.RegisterMethod(
		"/chain/info",
		"GET",
		apirest.MethodAccessTypePublic,
		a.chainInfoHandler,
	); err != nil {
		return err
	}
	if err := a.Endpoint.RegisterMethod(
		"/chain/blocks",
		"GET",
		apirest.MethodAccessTypePublic,
		a.chainBlocksHandler,
	); err != nil {
		return err
	}
	if err := a.Endpoint.RegisterMethod(
		"/chain/verify",
		"GET",
		apirest.MethodAccessTypePublic,
		a.chainVerifyHandler,
	); err != nil {
		return err
	}
	if err := a.Endpoint.RegisterMethod(
		"/chain/stats",
		"GET",
		apirest.MethodAccessTypePublic,
		a.chainStatsHandler,
	); err != nil {
		return err
	}
	if a.indexer != nil {
		if err := a.Endpoint.RegisterMethod(
			"/chain/rebuild",
			"POST",
			apirest.MethodAccessTypeAdmin,
			a.chainRebuildHandler,
		); err != nil {
			return err
		}
	}
	return nil
}

// chainInfoHandler
//
// GET /chain/info
// Returns the block count and the latest block of the ledger.
func (a *API) chainInfoHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	count, err := a.chainStore.Count()
	if err != nil {
		return ErrChainStoreFailure.WithErr(err)
	}
	info := ChainInfo{BlockCount: count}
	latest, err := a.chainStore.LatestBlock()
	switch {
	case err == nil:
		info.LatestHash = latest.Hash
		info.LatestTimestamp = latest.Timestamp.UTC().Format(types.ISOTimeLayout)
	case !errors.Is(err, chain.ErrNotInitialized):
		return ErrChainStoreFailure.WithErr(err)
	}
	return marshalAndSend(ctx, info)
}

// chainBlocksHandler
//
// GET /chain/blocks
// Returns every block of the ledger, ordered by timestamp.
func (a *API) chainBlocksHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	blocks, err := a.chainStore.Blocks()
	if err != nil {
		return ErrChainStoreFailure.WithErr(err)
	}
	chain.SortByTime(blocks)
	if blocks == nil {
		blocks = []types.Block{}
	}
	return marshalAndSend(ctx, blocks)
}

// chainVerifyHandler
//
// GET /chain/verify
// Re-checks the integrity of the whole stored chain.
func (a *API) chainVerifyHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	valid, err := a.verifier.Verify()
	if err != nil {
		return ErrChainStoreFailure.WithErr(err)
	}
	return marshalAndSend(ctx, VerifyResponse{Valid: valid})
}

// chainStatsHandler
//
// GET /chain/stats
// Returns the day-bucketed transaction and vehicle activity series.
func (a *API) chainStatsHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	blocks, err := a.chainStore.Blocks()
	if err != nil {
		return ErrChainStoreFailure.WithErr(err)
	}
	return marshalAndSend(ctx, chain.ComputeStats(blocks))
}

// chainRebuildHandler
//
// POST /chain/rebuild
// Verifies the chain and rebuilds the vehicle projection from scratch.
func (a *API) chainRebuildHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	applied, err := a.indexer.Rebuild(ctx.Request.Context())
	if errors.Is(err, chain.ErrIntegrity) {
		return ErrChainIntegrity
	}
	if err != nil {
		return ErrVehicleStoreFailure.WithErr(err)
	}
	metrics.ProjectionRebuilds.Inc()
	return marshalAndSend(ctx, RebuildResponse{AppliedTransactions: applied})
}
