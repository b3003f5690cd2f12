package api

import (
	"errors"

	"go.wheelz.io/wchain/chain/indexer"
	"go.wheelz.io/wchain/httprouter"
	"go.wheelz.io/wchain/httprouter/apirest"
)

func (a *API) enableVehicleHandlers() error {
	if err := a.Endpoint.RegisterMethod(
		"/vehicles",
		"GET",
		apirest.MethodAccessTypePublic,
		a.vehicleListHandler,
	); err != nil {
		return err
	}
	if err := a.Endpoint.RegisterMethod(
		"/vehicles/vin/{vin}",
		"GET",
		apirest.MethodAccessTypePublic,
		a.vehicleByVinHandler,
	); err != nil {
		return err
	}
	if err := a.Endpoint.RegisterMethod(
		"/vehicles/plate/{licensePlate}",
		"GET",
		apirest.MethodAccessTypePublic,
		a.vehicleByPlateHandler,
	); err != nil {
		return err
	}
	// lookup by query parameter, for clients that URL-encode the key
	if err := a.Endpoint.RegisterMethod(
		"/vehicle",
		"GET",
		apirest.MethodAccessTypePublic,
		a.vehicleQueryHandler,
	); err != nil {
		return err
	}
	return nil
}

// vehicleListHandler
//
// GET /vehicles?page=1&perPage=20&userIds=u1,u2&clientIds=c1
// Returns one page of projected vehicles. When both userIds and clientIds
// are given, vehicles must match both filters.
func (a *API) vehicleListHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	params, err := parsePagination(ctx)
	if err != nil {
		return err
	}
	filter := indexer.VehicleFilter{
		UserIDs:   parseListParam(ctx, "userIds"),
		ClientIDs: parseListParam(ctx, "clientIds"),
	}
	page, err := a.indexer.GetVehiclesPage(ctx.Request.Context(), params, filter)
	if err != nil {
		return ErrVehicleStoreFailure.WithErr(err)
	}
	return marshalAndSend(ctx, page)
}

// vehicleByVinHandler
//
// GET /vehicles/vin/{vin}
// Returns the projected vehicle identified by the VIN.
func (a *API) vehicleByVinHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	vehicle, err := a.indexer.GetVehicleByVin(ctx.Request.Context(), ctx.URLParam("vin"))
	if errors.Is(err, indexer.ErrVehicleNotFound) {
		return ErrVehicleNotFound
	}
	if err != nil {
		return ErrVehicleStoreFailure.WithErr(err)
	}
	return marshalAndSend(ctx, vehicle)
}

// vehicleByPlateHandler
//
// GET /vehicles/plate/{licensePlate}
// Returns the projected vehicle carrying the license plate.
func (a *API) vehicleByPlateHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	vehicle, err := a.indexer.GetVehicleByLicensePlate(ctx.Request.Context(), ctx.URLParam("licensePlate"))
	if errors.Is(err, indexer.ErrVehicleNotFound) {
		return ErrVehicleNotFound
	}
	if err != nil {
		return ErrVehicleStoreFailure.WithErr(err)
	}
	return marshalAndSend(ctx, vehicle)
}

// vehicleQueryHandler
//
// GET /vehicle?vin=... or GET /vehicle?licensePlate=...
// Returns the projected vehicle addressed by either key.
func (a *API) vehicleQueryHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	query := ctx.Request.URL.Query()
	if vin := query.Get("vin"); vin != "" {
		vehicle, err := a.indexer.GetVehicleByVin(ctx.Request.Context(), vin)
		if errors.Is(err, indexer.ErrVehicleNotFound) {
			return ErrVehicleNotFound
		}
		if err != nil {
			return ErrVehicleStoreFailure.WithErr(err)
		}
		return marshalAndSend(ctx, vehicle)
	}
	if plate := query.Get("licensePlate"); plate != "" {
		vehicle, err := a.indexer.GetVehicleByLicensePlate(ctx.Request.Context(), plate)
		if errors.Is(err, indexer.ErrVehicleNotFound) {
			return ErrVehicleNotFound
		}
		if err != nil {
			return ErrVehicleStoreFailure.WithErr(err)
		}
		return marshalAndSend(ctx, vehicle)
	}
	return ErrVehicleQueryMissing
}
