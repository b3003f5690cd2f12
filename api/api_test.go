package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"go.wheelz.io/wchain/chain"
	"go.wheelz.io/wchain/chain/indexer"
	"go.wheelz.io/wchain/db/metadb"
	"go.wheelz.io/wchain/httprouter"
	"go.wheelz.io/wchain/queue/memqueue"
	"go.wheelz.io/wchain/types"
)

const adminToken = "test-admin"

func testAPIServer(t *testing.T) string {
	chainStore := chain.NewStore(metadb.NewTest(t))
	builder := chain.NewBuilder(chainStore)
	clock := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	builder.SetClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})
	_, err := builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)
	_, err = builder.CreateBlock([]types.VehicleTransaction{{
		ID:        "tx-1",
		Timestamp: clock,
		UserID:    "user-1",
		Action:    types.ActionCreate,
		Status:    types.StatusPending,
		Data: types.TransactionData{Create: &types.Vehicle{
			VIN:   "VF1AAAAA000000001",
			Infos: types.VehicleInfos{LicensePlate: "AA-123-BB"},
		}},
	}})
	qt.Assert(t, err, qt.IsNil)

	store, err := indexer.NewSQLStore(filepath.Join(t.TempDir(), "state.sqlite"))
	qt.Assert(t, err, qt.IsNil)
	t.Cleanup(func() { store.Close() })
	idx := indexer.New(chainStore, store)
	_, err = idx.Rebuild(context.Background())
	qt.Assert(t, err, qt.IsNil)

	router := httprouter.HTTProuter{}
	qt.Assert(t, router.Init("127.0.0.1", 0), qt.IsNil)

	a, err := NewAPI(&router, "/v1")
	qt.Assert(t, err, qt.IsNil)
	a.Attach(chainStore, chain.NewVerifier(chainStore), idx, memqueue.New())
	qt.Assert(t, a.EnableHandlers(VehicleHandler, ChainHandler, HealthHandler), qt.IsNil)
	a.Endpoint.SetAdminToken(adminToken)

	return fmt.Sprintf("http://%s/v1", router.Address())
}

func doGet(t *testing.T, url string, out any) int {
	resp, err := http.Get(url)
	qt.Assert(t, err, qt.IsNil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	qt.Assert(t, err, qt.IsNil)
	if out != nil && resp.StatusCode == http.StatusOK {
		qt.Assert(t, json.Unmarshal(body, out), qt.IsNil)
	}
	return resp.StatusCode
}

func TestAPI(t *testing.T) {
	baseURL := testAPIServer(t)

	var page types.PaginatedVehicles
	status := doGet(t, baseURL+"/vehicles", &page)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	qt.Assert(t, page.Meta.Total, qt.Equals, 1)
	qt.Assert(t, page.Items[0].VIN, qt.Equals, "VF1AAAAA000000001")

	var vehicle types.Vehicle
	status = doGet(t, baseURL+"/vehicles/vin/VF1AAAAA000000001", &vehicle)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	qt.Assert(t, vehicle.UserID, qt.Equals, "user-1")

	status = doGet(t, baseURL+"/vehicles/vin/UNKNOWN", nil)
	qt.Assert(t, status, qt.Equals, http.StatusNotFound)

	status = doGet(t, baseURL+"/vehicle?licensePlate=AA-123-BB", &vehicle)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	qt.Assert(t, vehicle.VIN, qt.Equals, "VF1AAAAA000000001")

	status = doGet(t, baseURL+"/vehicle", nil)
	qt.Assert(t, status, qt.Equals, http.StatusBadRequest)

	var verify VerifyResponse
	status = doGet(t, baseURL+"/chain/verify", &verify)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	qt.Assert(t, verify.Valid, qt.IsTrue)

	var info ChainInfo
	status = doGet(t, baseURL+"/chain/info", &info)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	qt.Assert(t, info.BlockCount, qt.Equals, 2)
	qt.Assert(t, info.LatestHash != "", qt.IsTrue)

	var stats types.ChainStats
	status = doGet(t, baseURL+"/chain/stats", &stats)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	qt.Assert(t, stats.LastExecution, qt.IsNotNil)
	qt.Assert(t, stats.LastExecution.NewTransactions, qt.Equals, 1)

	var health HealthResponse
	status = doGet(t, baseURL+"/health", &health)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	qt.Assert(t, health.Status, qt.Equals, "ok")

	// admin rebuild needs the bearer token
	req, err := http.NewRequest(http.MethodPost, baseURL+"/chain/rebuild", nil)
	qt.Assert(t, err, qt.IsNil)
	resp, err := http.DefaultClient.Do(req)
	qt.Assert(t, err, qt.IsNil)
	resp.Body.Close()
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusUnauthorized)

	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = http.DefaultClient.Do(req)
	qt.Assert(t, err, qt.IsNil)
	defer resp.Body.Close()
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusOK)
	var rebuild RebuildResponse
	body, err := io.ReadAll(resp.Body)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, json.Unmarshal(body, &rebuild), qt.IsNil)
	qt.Assert(t, rebuild.AppliedTransactions, qt.Equals, 1)
}
