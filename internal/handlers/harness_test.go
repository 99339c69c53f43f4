package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/thornegames/orderboard/internal/category"
	"github.com/thornegames/orderboard/internal/config"
	"github.com/thornegames/orderboard/internal/engine"
	"github.com/thornegames/orderboard/internal/idempotency"
	"github.com/thornegames/orderboard/internal/ledger"
	"github.com/thornegames/orderboard/internal/market"
	"github.com/thornegames/orderboard/internal/stats"
)

// nopGateway satisfies engine.Gateway; the HTTP tests run fully in memory.
type nopGateway struct{}

func (nopGateway) LoadOrders(ctx context.Context) ([]*market.Order, error)       { return nil, nil }
func (nopGateway) SaveOrders(ctx context.Context, o []*market.Order) error       { return nil }
func (nopGateway) PutOrder(ctx context.Context, o *market.Order) error           { return nil }
func (nopGateway) DeleteOrder(ctx context.Context, id string) error              { return nil }
func (nopGateway) UpdateOrderStatus(ctx context.Context, id string, s market.OrderStatus) error {
	return nil
}
func (nopGateway) LoadAdminOrders(ctx context.Context) ([]*market.AdminOrder, error) {
	return nil, nil
}
func (nopGateway) SaveAdminOrders(ctx context.Context, o []*market.AdminOrder) error { return nil }
func (nopGateway) PutAdminOrder(ctx context.Context, o *market.AdminOrder) error     { return nil }
func (nopGateway) DeleteAdminOrder(ctx context.Context, id string) error             { return nil }
func (nopGateway) UpdateAdminOrderState(ctx context.Context, o *market.AdminOrder) error {
	return nil
}

type nopStatsGateway struct{}

func (nopStatsGateway) LoadStats(ctx context.Context) ([]*market.PlayerStats, error) {
	return nil, nil
}
func (nopStatsGateway) SaveStats(ctx context.Context, s []*market.PlayerStats) error { return nil }

type nopCategoryGateway struct{}

func (nopCategoryGateway) LoadCategories(ctx context.Context) ([]*market.Category, error) {
	return nil, nil
}
func (nopCategoryGateway) PutCategory(ctx context.Context, c *market.Category) error { return nil }
func (nopCategoryGateway) DeleteCategory(ctx context.Context, id string) error       { return nil }

// keyTable is a one-table DynamoDB stand-in for the create-keys store.
type keyTable struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newKeyTable() *keyTable {
	return &keyTable{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(m map[string]types.AttributeValue) string {
	if v, ok := m["idempotency_key"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (k *keyTable) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	key := keyOf(params.Item)
	if params.ConditionExpression != nil {
		if _, exists := k.items[key]; exists {
			return nil, &smithy.GenericAPIError{
				Code:    "ConditionalCheckFailedException",
				Message: "The conditional request failed",
			}
		}
	}
	k.items[key] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (k *keyTable) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return &dyn.GetItemOutput{Item: k.items[keyOf(params.Key)]}, nil
}

func (k *keyTable) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	item, ok := k.items[keyOf(params.Key)]
	if !ok {
		item = map[string]types.AttributeValue{}
		for kk, v := range params.Key {
			item[kk] = v
		}
		k.items[keyOf(params.Key)] = item
	}
	vals := params.ExpressionAttributeValues
	if v, ok := vals[":done"]; ok {
		item["status"] = v
	}
	if v, ok := vals[":failed"]; ok {
		item["status"] = v
	}
	if v, ok := vals[":oid"]; ok {
		item["order_id"] = v
	}
	if v, ok := vals[":rb"]; ok {
		item["response_body"] = v
	}
	if v, ok := vals[":rs"]; ok {
		item["response_status"] = v
	}
	if v, ok := vals[":n"]; ok {
		item["note"] = v
	}
	return &dyn.UpdateItemOutput{}, nil
}

func (k *keyTable) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.items, keyOf(params.Key))
	return &dyn.DeleteItemOutput{}, nil
}

func (k *keyTable) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	return &dyn.ScanOutput{}, nil
}

func (k *keyTable) BatchWriteItem(ctx context.Context, params *dyn.BatchWriteItemInput, optFns ...func(*dyn.Options)) (*dyn.BatchWriteItemOutput, error) {
	return &dyn.BatchWriteItemOutput{}, nil
}

type testServer struct {
	router *gin.Engine
	engine *engine.Engine
	ledger *ledger.Memory
	stats  *stats.Manager
	cats   *category.Index
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	holder := config.NewHolder(&config.Settings{
		MinPricePerItem:     0.01,
		MaxPricePerItem:     1000,
		MinOrderTotal:       1,
		HighlightFeePercent: 2.5,
		MaxOrderQuantity:    1_000_000,
		OrderLimit:          5,
		ExpirationDays:      7,
		BroadcastEnabled:    true,
		BroadcastMinTotal:   1000,
	})

	led := ledger.NewMemory()
	statsMgr := stats.NewManager(nopStatsGateway{}, log)
	adminStore := market.NewAdminStore()
	eng := engine.New(engine.Config{
		Store:    market.NewStore(),
		Admin:    adminStore,
		Settings: holder,
		Ledger:   led,
		Gateway:  nopGateway{},
		Stats:    statsMgr,
		Log:      log,
	})
	cats := category.NewIndex(adminStore, nopCategoryGateway{})

	router := gin.New()
	RegisterRoutes(router, HandlerConfig{
		Engine:     eng,
		Stats:      statsMgr,
		Categories: cats,
		CreateKeys: idempotency.NewStore(newKeyTable(), "order_create_keys", 48*time.Hour),
		Settings:   holder,
		Log:        log,
	})

	return &testServer{router: router, engine: eng, ledger: led, stats: statsMgr, cats: cats}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var parsed map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed), "body: %s", rec.Body.String())
	}
	return rec, parsed
}

var createKeySeq int

func idempotencyKey() map[string]string {
	createKeySeq++
	return map[string]string{"Idempotency-Key": "key-" + strconv.Itoa(createKeySeq)}
}

func createOrderBody(amount int, unitPrice float64) map[string]any {
	return map[string]any{
		"actor":          map[string]any{"player_id": "owner-1", "player_name": "Thorne"},
		"item":           map[string]any{"kind": "DIAMOND"},
		"amount":         amount,
		"unit_price":     unitPrice,
		"expected_total": float64(amount) * unitPrice,
	}
}

func (ts *testServer) createOrder(t *testing.T, amount int, unitPrice float64) string {
	t.Helper()
	rec, body := ts.do(t, http.MethodPost, "/orders", createOrderBody(amount, unitPrice), idempotencyKey())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return body["id"].(string)
}
