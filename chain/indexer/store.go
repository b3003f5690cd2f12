package indexer

import (
	"context"
	"errors"
	"io"

	"go.wheelz.io/wchain/types"
)

// ErrVehicleNotFound is returned by reads addressing a VIN or license plate
// with no projected vehicle.
var ErrVehicleNotFound = errors.New("vehicle not found")

// VehicleFilter restricts paginated vehicle listings. Within each list the
// values are alternatives; when both lists are set a vehicle must match both.
type VehicleFilter struct {
	UserIDs   []string
	ClientIDs []string
}

// Store is the projection store: the queryable vehicle state derived from the
// ledger. Implementations must make Reset plus replay equivalent to a fresh
// store, so the projection can be dropped and rebuilt at any time.
type Store interface {
	io.Closer

	SaveVehicle(ctx context.Context, v *types.Vehicle) error
	UpdateVehicleByVin(ctx context.Context, vin, userID string, changes *types.VehicleChanges) error
	RemoveVehicleByVin(ctx context.Context, vin string) error

	GetVehicleByVin(ctx context.Context, vin string) (*types.Vehicle, error)
	GetVehicleByLicensePlate(ctx context.Context, plate string) (*types.Vehicle, error)
	GetVehiclesPage(ctx context.Context, params types.PaginationParams, filter VehicleFilter) (*types.PaginatedVehicles, error)
	CountVehicles(ctx context.Context) (int, error)

	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}
