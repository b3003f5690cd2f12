package api

import (
	"errors"

	"go.wheelz.io/wchain/httprouter/apirest"
)

// APIerror satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 4001-4999 range are the user's fault,
// and error codes 5001-5999 are the server's fault, mimicking HTTP.
var (
	ErrVehicleNotFound      = apirest.APIerror{Code: 4001, HTTPstatus: apirest.HTTPstatusNotFound, Err: errors.New("vehicle not found")}
	ErrCantParsePageNumber  = apirest.APIerror{Code: 4002, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("cannot parse page number")}
	ErrCantParsePageSize    = apirest.APIerror{Code: 4003, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("cannot parse page size")}
	ErrPageSizeTooBig       = apirest.APIerror{Code: 4004, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("page size exceeds the maximum allowed")}
	ErrVehicleQueryMissing  = apirest.APIerror{Code: 4005, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("either vin or licensePlate must be provided")}
	ErrMarshalingJSONFailed = apirest.APIerror{Code: 5001, HTTPstatus: apirest.HTTPstatusInternalErr, Err: errors.New("marshaling JSON failed")}
	ErrChainStoreFailure    = apirest.APIerror{Code: 5002, HTTPstatus: apirest.HTTPstatusInternalErr, Err: errors.New("cannot read the chain store")}
	ErrVehicleStoreFailure  = apirest.APIerror{Code: 5003, HTTPstatus: apirest.HTTPstatusInternalErr, Err: errors.New("cannot read the vehicle state store")}
	ErrChainIntegrity       = apirest.APIerror{Code: 5004, HTTPstatus: apirest.HTTPstatusInternalErr, Err: errors.New("chain integrity check failed")}
)
