package integration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/events"
	"github.com/vladislavdragonenkov/storefront/internal/service/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/service/ordering"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/storage/sqlite"
)

// StorefrontLifecycleTestSuite гоняет HTTP API поверх SQLite вместе с outbox worker.
type StorefrontLifecycleTestSuite struct {
	suite.Suite
	db        *sqlite.DB
	outbox    domain.OutboxRepository
	app       *fiber.App
	publisher *capturePublisher
	dlq       *capturePublisher
	worker    *outbox.Worker
}

func TestStorefrontLifecycle(t *testing.T) {
	suite.Run(t, new(StorefrontLifecycleTestSuite))
}

func (suite *StorefrontLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	baseLogger.SetOutput(io.Discard)
	logger := baseLogger.WithField("component", "integration-test")

	db, err := sqlite.Open(context.Background(), ":memory:")
	suite.Require().NoError(err)
	suite.db = db

	stores := sqlite.NewStoreRepository(db)
	products := sqlite.NewProductRepository(db)
	orders := sqlite.NewOrderRepository(db)
	suite.outbox = sqlite.NewOutboxRepository(db)

	m := metrics.NewShopMetricsWithRegisterer(prometheus.NewRegistry())
	recorder := events.NewRecorder(suite.outbox, m, logger)
	opts := []catalog.Option{catalog.WithLogger(logger), catalog.WithMetrics(m), catalog.WithEvents(recorder)}

	suite.app = httpapi.NewApp(
		catalog.NewStoreService(stores, products, opts...),
		catalog.NewProductService(stores, products, opts...),
		ordering.NewService(ordering.NewBuilder(stores), orders, recorder, m, logger),
		httpapi.Config{Logger: logger, Metrics: m},
	)

	suite.publisher = &capturePublisher{}
	suite.dlq = &capturePublisher{}
	suite.worker = outbox.NewWorker(suite.outbox, suite.publisher,
		outbox.WithLogger(logger),
		outbox.WithMetrics(m),
		outbox.WithDLQPublisher(suite.dlq),
		outbox.WithConfig(outbox.Config{MaxAttempts: 2}),
		outbox.WithRetryBaseDelay(0),
	)
}

func (suite *StorefrontLifecycleTestSuite) TearDownTest() {
	suite.Require().NoError(suite.db.Close())
}

func (suite *StorefrontLifecycleTestSuite) TestOrderLifecycle() {
	// 1. Магазин и два товара
	storeID := suite.createStore("Corner Shop", "Baker St")
	apple := suite.createProduct(storeID, "Apple", 0.5)
	bread := suite.createProduct(storeID, "Bread", 2.25)

	status, raw := suite.request(http.MethodGet, "/api/stores/"+storeID+"/products", "")
	suite.Require().Equal(http.StatusOK, status)
	suite.Require().Len(decode[[]map[string]any](suite.T(), raw), 2)

	// 2. Заказ с неверной клиентской суммой: сервер пересчитывает её сам
	body := `{"userName":"alice","storeId":"` + storeID + `","totalAmount":100,"items":[` +
		`{"product":{"_id":"` + apple + `","price":0.5},"quantity":4},` +
		`{"product":{"_id":"` + bread + `","price":2.25},"quantity":1}]}`
	status, raw = suite.request(http.MethodPost, "/api/orders", body)
	suite.Require().Equal(http.StatusCreated, status, string(raw))

	created := decode[map[string]any](suite.T(), raw)
	orderID, _ := created["_id"].(string)
	suite.Require().NotEmpty(orderID)
	suite.Require().InDelta(4.25, created["totalAmount"], 1e-9)
	suite.Require().Equal(storeID, created["store"])

	// 3. Заказ читается обратно в том же виде
	status, raw = suite.request(http.MethodGet, "/api/orders/"+orderID, "")
	suite.Require().Equal(http.StatusOK, status)
	fetched := decode[map[string]any](suite.T(), raw)
	suite.Require().Equal("alice", fetched["userName"])
	suite.Require().Len(fetched["items"], 2)
	suite.Require().InDelta(4.25, fetched["totalAmount"], 1e-9)

	// 4. Событие order.created уходит через outbox
	sent := suite.worker.ProcessOnce(context.Background())
	suite.Require().Equal(1, sent)
	published := suite.publisher.messages()
	suite.Require().Len(published, 1)
	suite.Require().Equal(domain.EventTypeOrderCreated, published[0].EventType)
	suite.Require().Equal(orderID, published[0].AggregateID)

	var payload domain.OrderCreatedPayload
	suite.Require().NoError(json.Unmarshal(published[0].Payload, &payload))
	suite.Require().Equal(orderID, payload.OrderID)
	suite.Require().Equal(2, payload.ItemCount)
	suite.Require().InDelta(4.25, payload.TotalAmount, 1e-9)

	stats, err := suite.outbox.Stats(context.Background())
	suite.Require().NoError(err)
	suite.Require().Zero(stats.PendingCount)
}

func (suite *StorefrontLifecycleTestSuite) TestStoreCascadeDelete() {
	storeID := suite.createStore("Depot", "Dock 4")
	productID := suite.createProduct(storeID, "Crate", 12)
	suite.createProduct(storeID, "Pallet", 30)

	status, raw := suite.request(http.MethodDelete, "/api/stores/"+storeID, "")
	suite.Require().Equal(http.StatusOK, status)
	suite.Require().Equal("Store 'Depot' and 2 associated products deleted successfully", decode[map[string]any](suite.T(), raw)["msg"])

	status, raw = suite.request(http.MethodGet, "/api/stores/"+storeID+"/products", "")
	suite.Require().Equal(http.StatusOK, status)
	suite.Require().Empty(decode[[]map[string]any](suite.T(), raw))

	status, _ = suite.request(http.MethodDelete, "/api/stores/"+storeID+"/products/"+productID, "")
	suite.Require().Equal(http.StatusNotFound, status)

	status, _ = suite.request(http.MethodDelete, "/api/stores/"+storeID, "")
	suite.Require().Equal(http.StatusNotFound, status)

	suite.Require().Equal(1, suite.worker.ProcessOnce(context.Background()))
	published := suite.publisher.messages()
	suite.Require().Equal(domain.EventTypeStoreDeleted, published[0].EventType)

	var payload domain.StoreDeletedPayload
	suite.Require().NoError(json.Unmarshal(published[0].Payload, &payload))
	suite.Require().Equal(storeID, payload.StoreID)
	suite.Require().Equal(2, payload.ProductsDeleted)
}

func (suite *StorefrontLifecycleTestSuite) TestProductOwnershipAcrossStores() {
	first := suite.createStore("North", "Hill Rd")
	second := suite.createStore("South", "Bay Rd")
	productID := suite.createProduct(first, "Lamp", 15)

	status, raw := suite.request(http.MethodPut, "/api/stores/"+second+"/products/"+productID, `{"price":1}`)
	suite.Require().Equal(http.StatusForbidden, status, string(raw))

	status, _ = suite.request(http.MethodDelete, "/api/stores/"+second+"/products/"+productID, "")
	suite.Require().Equal(http.StatusForbidden, status)

	status, raw = suite.request(http.MethodPut, "/api/stores/"+first+"/products/"+productID, `{"price":0}`)
	suite.Require().Equal(http.StatusOK, status)
	suite.Require().InDelta(0.0, decode[map[string]any](suite.T(), raw)["price"], 1e-9)
}

func (suite *StorefrontLifecycleTestSuite) TestRejectedOrderLeavesNoTrace() {
	storeID := suite.createStore("Kiosk", "Station")
	productID := suite.createProduct(storeID, "Paper", 1)

	status, _ := suite.request(http.MethodPost, "/api/orders",
		`{"userName":"bob","storeId":"`+storeID+`","items":[{"product":{"_id":"`+productID+`","price":1},"quantity":0}]}`)
	suite.Require().Equal(http.StatusBadRequest, status)

	status, _ = suite.request(http.MethodPost, "/api/orders",
		`{"userName":"bob","storeId":"`+domain.NewID()+`","items":[{"product":{"_id":"`+productID+`","price":1},"quantity":1}]}`)
	suite.Require().Equal(http.StatusNotFound, status)

	stats, err := suite.outbox.Stats(context.Background())
	suite.Require().NoError(err)
	suite.Require().Zero(stats.PendingCount)
}

func (suite *StorefrontLifecycleTestSuite) TestUnpublishableEventGoesToDLQ() {
	suite.publisher.fail(errors.New("broker unavailable"))
	storeID := suite.createStore("Outlet", "Mall")

	status, _ := suite.request(http.MethodDelete, "/api/stores/"+storeID, "")
	suite.Require().Equal(http.StatusOK, status)

	suite.Require().Zero(suite.worker.ProcessOnce(context.Background()))
	suite.Require().Equal(2, suite.publisher.attempts())

	letters := suite.dlq.messages()
	suite.Require().Len(letters, 1)

	var letter domain.DeadLetter
	suite.Require().NoError(json.Unmarshal(letters[0].Payload, &letter))
	suite.Require().Contains(letter.PublishError, "broker unavailable")

	replay := letter.Message()
	suite.Require().Equal(domain.EventTypeStoreDeleted, replay.EventType)
	suite.Require().Equal(storeID, replay.AggregateID)
	suite.Require().JSONEq(`{"store_id":"`+storeID+`","name":"Outlet","location":"Mall","products_deleted":0}`, string(replay.Payload))

	stats, err := suite.outbox.Stats(context.Background())
	suite.Require().NoError(err)
	suite.Require().Zero(stats.PendingCount)
}

func (suite *StorefrontLifecycleTestSuite) createStore(name, location string) string {
	status, raw := suite.request(http.MethodPost, "/api/stores", `{"name":"`+name+`","location":"`+location+`"}`)
	suite.Require().Equal(http.StatusCreated, status, string(raw))
	id, _ := decode[map[string]any](suite.T(), raw)["_id"].(string)
	suite.Require().NotEmpty(id)
	return id
}

func (suite *StorefrontLifecycleTestSuite) createProduct(storeID, name string, price float64) string {
	body, err := json.Marshal(map[string]any{"name": name, "price": price})
	suite.Require().NoError(err)

	status, raw := suite.request(http.MethodPost, "/api/stores/"+storeID+"/products", string(body))
	suite.Require().Equal(http.StatusCreated, status, string(raw))
	product := decode[map[string]any](suite.T(), raw)
	suite.Require().Equal(storeID, product["store"])
	id, _ := product["_id"].(string)
	return id
}

func (suite *StorefrontLifecycleTestSuite) request(method, path, body string) (int, []byte) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := suite.app.Test(req, -1)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// capturePublisher запоминает опубликованные события; после fail все публикации падают.
type capturePublisher struct {
	mu        sync.Mutex
	err       error
	calls     int
	published []domain.OutboxMessage
}

func (p *capturePublisher) Publish(msg domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func (p *capturePublisher) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *capturePublisher) attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *capturePublisher) messages() []domain.OutboxMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OutboxMessage(nil), p.published...)
}
