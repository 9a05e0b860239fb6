package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	appinv "github.com/Zhima-Mochi/pizzashop/internal/application/inventory"
	"github.com/Zhima-Mochi/pizzashop/internal/application/assembler"
	"github.com/Zhima-Mochi/pizzashop/internal/application/compose"
	apppay "github.com/Zhima-Mochi/pizzashop/internal/application/payment"
	"github.com/Zhima-Mochi/pizzashop/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/pizzashop/internal/domain/inventory"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/id"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/observability/obstest"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/outbox"
	infrapay "github.com/Zhima-Mochi/pizzashop/internal/infrastructure/payment"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testServer struct {
	*httptest.Server
	tel      *obstest.Harness
	sessions *memory.SessionRepository[*assembler.Session]
	receipts *apppay.ReceiptWorker
}

func newTestServer(t *testing.T, seed map[string]int) *testServer {
	t.Helper()
	tel := obstest.New()
	store, err := memory.NewInventoryStore(seed)
	require.NoError(t, err)

	bus := outbox.NewBus(tel.Logger())
	receipts := apppay.NewReceiptWorker(bus, 10, tel)
	receipts.Start()
	stock := appinv.NewStockWorker(bus, tel)
	stock.Start()
	bus.Start(context.Background())
	t.Cleanup(func() { bus.Stop(context.Background()) })

	menu := catalog.Default()
	methods := apppay.NewRegistry().
		MustRegister("1", infrapay.PayPal{}).
		MustRegister("2", infrapay.CreditCard{})
	reserve := appinv.NewReserveUseCase(store, bus, tel)
	chain := compose.NewChain(menu, reserve, id.UUID{}, bus, tel)
	settle := apppay.NewSettleUseCase(methods, bus, tel)
	sessions := memory.NewSessionRepository[*assembler.Session]()

	h := NewHandler(Deps{
		Menu:      menu,
		Methods:   methods,
		Inventory: store,
		Assembler: assembler.New(chain, settle, id.UUID{}, bus, tel),
		Sessions:  sessions,
		Receipts:  receipts,
		Stockouts: stock,
		Gatherer:  tel.Registry,
	}, tel)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, tel: tel, sessions: sessions, receipts: receipts}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, rdr)
	require.NoError(t, err)
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) newSession(t *testing.T) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "selecting_base", body["phase"])
	return body["session_id"].(string)
}

func TestHealthAndMenu(t *testing.T) {
	srv := newTestServer(t, dominv.DefaultSeed())

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(raw))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	status, menu := srv.do(t, http.MethodGet, "/menu", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, menu["bases"], 2)
	assert.Len(t, menu["toppings"], 3)
	assert.Len(t, menu["payment_methods"], 2)
}

func TestOrderFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t, dominv.DefaultSeed())
	id := srv.newSession(t)
	base := "/sessions/" + id

	status, body := srv.do(t, http.MethodPost, base+"/base", `{"code":"1"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "out_of_stock", body["kind"])

	status, body = srv.do(t, http.MethodPost, base+"/base", `{"code":"2"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "selecting_toppings", body["phase"])

	status, _ = srv.do(t, http.MethodPost, base+"/toppings", `{"code":"1"}`)
	require.Equal(t, http.StatusOK, status)
	status, body = srv.do(t, http.MethodPost, base+"/toppings", `{"code":"3"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Pepperoni, Cheese, Mushrooms", body["description"])

	status, body = srv.do(t, http.MethodPost, base+"/finish", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "7.7", body["cost"])

	status, body = srv.do(t, http.MethodPost, base+"/payment", `{"method":"9"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "unknown_selection", body["kind"])

	status, body = srv.do(t, http.MethodPost, base+"/payment", `{"method":"paypal"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Paid $7.70 using PayPal.", body["confirmation"])

	status, _ = srv.do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 0, srv.sessions.Len())

	assert.Eventually(t, func() bool { return len(srv.receipts.Recent()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t, dominv.DefaultSeed())
	id := srv.newSession(t)
	base := "/sessions/" + id

	status, body := srv.do(t, http.MethodPost, base+"/toppings", `{"code":"1"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", body["kind"])

	status, body = srv.do(t, http.MethodPost, base+"/base", `{"code":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "unknown_selection", body["kind"])

	status, body = srv.do(t, http.MethodPost, base+"/base", `{"code":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad_request", body["kind"])

	status, _ = srv.do(t, http.MethodPost, "/sessions/missing/base", `{"code":"2"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCancelKeepsInventory(t *testing.T) {
	srv := newTestServer(t, dominv.DefaultSeed())
	id := srv.newSession(t)

	status, _ := srv.do(t, http.MethodPost, "/sessions/"+id+"/base", `{"code":"2"}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = srv.do(t, http.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, status)

	resp, err := srv.Client().Get(srv.URL + "/inventory")
	require.NoError(t, err)
	defer resp.Body.Close()
	var levels []stockLevel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&levels))
	assert.Contains(t, levels, stockLevel{Name: "Pepperoni", Quantity: 4})
}

func TestHTTPMetricsUseRoutePattern(t *testing.T) {
	srv := newTestServer(t, dominv.DefaultSeed())
	id := srv.newSession(t)
	srv.do(t, http.MethodGet, "/sessions/"+id, "")

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(raw), `route="/sessions/{id}`)
	assert.NotContains(t, string(raw), id)

	n, err := testutil.GatherAndCount(srv.tel.Registry, obstest.Namespace+"_http_requests_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)

	access := srv.tel.Last("http_access")
	require.NotNil(t, access)
	assert.NotEmpty(t, access["request_id"])
}

func TestStockoutsListDeniedItems(t *testing.T) {
	srv := newTestServer(t, dominv.DefaultSeed())
	id := srv.newSession(t)

	status, _ := srv.do(t, http.MethodPost, "/sessions/"+id+"/base", `{"code":"1"}`)
	require.Equal(t, http.StatusConflict, status)

	stockouts := func() []stockout {
		resp, err := srv.Client().Get(srv.URL + "/inventory/stockouts")
		if err != nil {
			return nil
		}
		defer resp.Body.Close()
		var out []stockout
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil
		}
		return out
	}
	require.Eventually(t, func() bool { return len(stockouts()) == 1 }, time.Second, 10*time.Millisecond)
	got := stockouts()[0]
	assert.Equal(t, "Margherita", got.Name)
	assert.False(t, got.FirstSeen.IsZero())
}
