// Package api exposes the ledger and its projected vehicle state over a
// bearer-authenticated REST API.
package api

import (
	"fmt"
	"strings"

	"go.wheelz.io/wchain/chain"
	"go.wheelz.io/wchain/chain/indexer"
	"go.wheelz.io/wchain/httprouter"
	"go.wheelz.io/wchain/httprouter/apirest"
	"go.wheelz.io/wchain/queue"
)

// MaxPageSize defines the maximum number of results returned by the paginated endpoints
const MaxPageSize = 100

// Available handler groups
const (
	VehicleHandler = "vehicle"
	ChainHandler   = "chain"
	HealthHandler  = "health"
)

var (
	ErrMissingModulesForHandler = fmt.Errorf("missing modules attached for enabling handler")
	ErrHandlerUnknown           = fmt.Errorf("handler unknown")
	ErrHTTPRouterIsNil          = fmt.Errorf("httprouter is nil")
	ErrBaseRouteInvalid         = fmt.Errorf("base route must start with /")
)

// API is the URL based REST API supporting bearer authentication.
type API struct {
	Endpoint *apirest.API

	chainStore *chain.Store
	verifier   *chain.Verifier
	indexer    *indexer.Indexer
	inbound    queue.Inbound
}

// NewAPI creates a new instance of the API. Attach must be called next.
func NewAPI(router *httprouter.HTTProuter, baseRoute string) (*API, error) {
	if router == nil {
		return nil, ErrHTTPRouterIsNil
	}
	if len(baseRoute) == 0 || baseRoute[0] != '/' {
		return nil, fmt.Errorf("%w (invalid given: %s)", ErrBaseRouteInvalid, baseRoute)
	}
	// Remove trailing slash
	if len(baseRoute) > 1 {
		baseRoute = strings.TrimSuffix(baseRoute, "/")
	}
	api := API{}
	var err error
	api.Endpoint, err = apirest.NewAPI(router, baseRoute)
	if err != nil {
		return nil, err
	}
	return &api, nil
}

// Attach takes the modules used by the handlers in order to interact with the
// system. Attach must be called before EnableHandlers.
func (a *API) Attach(chainStore *chain.Store, verifier *chain.Verifier,
	idx *indexer.Indexer, inbound queue.Inbound,
) {
	a.chainStore = chainStore
	a.verifier = verifier
	a.indexer = idx
	a.inbound = inbound
}

// EnableHandlers enables the list of handlers. Attach must be called before.
func (a *API) EnableHandlers(handlers ...string) error {
	for _, h := range handlers {
		switch h {
		case VehicleHandler:
			if a.indexer == nil {
				return fmt.Errorf("%w %s", ErrMissingModulesForHandler, h)
			}
			if err := a.enableVehicleHandlers(); err != nil {
				return err
			}
		case ChainHandler:
			if a.chainStore == nil || a.verifier == nil {
				return fmt.Errorf("%w %s", ErrMissingModulesForHandler, h)
			}
			if err := a.enableChainHandlers(); err != nil {
				return err
			}
		case HealthHandler:
			if err := a.enableHealthHandlers(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s", ErrHandlerUnknown, h)
		}
	}
	return nil
}
