//go:build integration

package test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-api/internal/cache"
	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/messaging"
	"github.com/joao-fontenele/storefront-api/internal/notify"
	"github.com/joao-fontenele/storefront-api/internal/orders"
	"github.com/joao-fontenele/storefront-api/internal/store"
	"github.com/joao-fontenele/storefront-api/internal/store/memstore"
	"github.com/joao-fontenele/storefront-api/internal/store/mongo"
	"github.com/joao-fontenele/storefront-api/internal/store/postgres"
	"github.com/joao-fontenele/storefront-api/internal/store/storetest"
	"github.com/joao-fontenele/storefront-api/internal/uploads"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestPostgresStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	storetest.Run(t, func(t *testing.T) *store.Store {
		db, err := sql.Open("postgres", pg.ConnStr)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, "TRUNCATE categories, products, users, order_items, orders")
		require.NoError(t, err)

		st := postgres.New(db)
		t.Cleanup(func() { _ = st.Close(context.Background()) })
		return st
	})
}

func TestPostgresRejectsMalformedIDs(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	st, err := postgres.Open(ctx, pg.ConnStr)
	require.NoError(t, err)
	defer func() { _ = st.Close(context.Background()) }()

	_, err = st.Products.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = st.Orders.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresRejectsNonFinitePrices(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	st, err := postgres.Open(ctx, pg.ConnStr)
	require.NoError(t, err)
	defer func() { _ = st.Close(context.Background()) }()

	for _, price := range []float64{math.NaN(), math.Inf(1)} {
		err := st.Products.Create(ctx, &domain.Product{Name: "Broken", Price: price, Images: []string{}, DateCreated: time.Now()})
		assert.Error(t, err, "price %v", price)
	}
	count, err := st.Products.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMongoStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	uri, cleanup := SetupMongo(ctx, t)
	defer cleanup()

	var n atomic.Int32
	storetest.Run(t, func(t *testing.T) *store.Store {
		st, err := mongo.Open(ctx, uri, fmt.Sprintf("storetest-%d", n.Add(1)))
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close(context.Background()) })
		return st
	})
}

type outbox struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (o *outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) messages() []notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]notify.Message(nil), o.sent...)
}

func TestOrderPlacedNotification(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	st, err := postgres.Open(ctx, pg.ConnStr)
	require.NoError(t, err)
	defer func() { _ = st.Close(context.Background()) }()

	category := &domain.Category{Name: "Phones"}
	require.NoError(t, st.Categories.Create(ctx, category))
	product := &domain.Product{Name: "Phone", Price: 199.9, CategoryID: category.ID, Images: []string{}, DateCreated: time.Now()}
	require.NoError(t, st.Products.Create(ctx, product))
	user := &domain.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, st.Users.Create(ctx, user))

	publisher := messaging.NewOrderPlacedPublisher(brokers)
	defer func() { _ = publisher.Close() }()

	svc := orders.NewService(st, discard, orders.WithPublisher(publisher))
	order, err := svc.Place(ctx, orders.PlaceInput{
		Lines:  []orders.Line{{ProductID: product.ID, Quantity: 2}},
		UserID: user.ID,
	})
	require.NoError(t, err)
	assert.InDelta(t, 399.8, order.TotalPrice, 1e-9)

	total, err := svc.TotalSales(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 399.8, total, 1e-9)

	mail := &outbox{}
	notifier := notify.NewNotifier(st.Users, mail, discard)
	consumer := messaging.NewConsumer(brokers, messaging.TopicOrderPlaced, messaging.NotifierGroupID, discard,
		messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = consumer.Consume(consumeCtx, messaging.DecodeOrderPlaced(notifier.HandleOrderPlaced)) }()

	require.Eventually(t, func() bool { return len(mail.messages()) == 1 }, time.Minute, 500*time.Millisecond)
	msg := mail.messages()[0]
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, "Order Confirmation: "+order.ID, msg.Subject)

	report, err := svc.Delete(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, report.FailedItems)
	_, err = st.OrderItems.GetByID(ctx, order.OrderItems[0])
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductCache(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisURL, cleanup := SetupRedis(ctx, t)
	defer cleanup()

	client, err := cache.Connect(ctx, redisURL)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	db := memstore.NewDB()
	backing := db.Store()
	st := cache.Wrap(backing, client, discard)

	product := &domain.Product{Name: "Phone", Price: 10, Images: []string{}, DateCreated: time.Now()}
	require.NoError(t, st.Products.Create(ctx, product))

	got, err := st.Products.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Phone", got.Name)

	cached, err := client.Get(ctx, "product:"+product.ID).Result()
	require.NoError(t, err)
	assert.Contains(t, cached, `"name":"Phone"`)

	product.Name = "Phone 2"
	require.NoError(t, st.Products.Update(ctx, product))
	_, err = client.Get(ctx, "product:"+product.ID).Result()
	assert.ErrorIs(t, err, redis.Nil)

	got, err = st.Products.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Phone 2", got.Name)

	_, err = st.Products.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	marker, err := client.Get(ctx, "product:missing").Result()
	require.NoError(t, err)
	assert.Equal(t, "notfound", marker)
	_, err = st.Products.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, st.Categories.Create(ctx, &domain.Category{Name: "Books"}))
	list, err := st.Categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	require.NoError(t, backing.Categories.Create(ctx, &domain.Category{Name: "Games"}))
	list, err = st.Categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "served from cache")
	require.NoError(t, st.Categories.Create(ctx, &domain.Category{Name: "Toys"}))
	list, err = st.Categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestMinioImageStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	setup, cleanup := SetupMinio(ctx, t)
	defer cleanup()

	images, err := uploads.NewMinioStore(ctx, uploads.MinioConfig{
		Endpoint:  setup.Endpoint,
		AccessKey: setup.AccessKey,
		SecretKey: setup.SecretKey,
		Bucket:    "product-images",
	})
	require.NoError(t, err)

	content := "png-bytes"
	location, err := images.Save(ctx, uploads.Upload{
		Name:        "front.png-1.png",
		ContentType: "image/png",
		Size:        int64(len(content)),
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	})
	require.NoError(t, err)
	assert.Equal(t, "http://"+setup.Endpoint+"/product-images/front.png-1.png", location)

	client, err := minio.New(setup.Endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(setup.AccessKey, setup.SecretKey, ""),
	})
	require.NoError(t, err)
	info, err := client.StatObject(ctx, "product-images", "front.png-1.png", minio.StatObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
	assert.EqualValues(t, len(content), info.Size)
}
