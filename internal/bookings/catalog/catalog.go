// Package catalog reads tours owned by the tour service. Bookings only need
// the price and whether the tour is still sold.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	bookingserrors "tourbook/internal/bookings/errors"
	"tourbook/pkg/client"
	"tourbook/pkg/config"
	mongotx "tourbook/pkg/db/mongo"
	"tourbook/pkg/middleware"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Tours"

type TourCatalog interface {
	// FindActive returns ErrTourNotFound for unknown and inactive tours alike.
	FindActive(ctx context.Context, tourID string) (*model.Tour, error)
}

type mongoTourCatalog struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTourCatalog(cfg *config.Config) TourCatalog {
	return &mongoTourCatalog{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (c *mongoTourCatalog) FindActive(ctx context.Context, tourID string) (*model.Tour, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, c.cfg.ReadTimeout)
	defer cancel()

	// Tours written by other services may use ObjectIDs or plain strings.
	ids := bson.A{tourID}
	if oid, err := primitive.ObjectIDFromHex(tourID); err == nil {
		ids = append(ids, oid)
	}

	var tour model.Tour
	err := c.collection.FindOne(ctx, bson.M{"_id": bson.M{"$in": ids}, "is_active": true}).Decode(&tour)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrTourNotFound
		}
		return nil, fmt.Errorf("%w: %v", bookingserrors.ErrTourUnavailable, err)
	}
	return &tour, nil
}

type httpTourCatalog struct {
	client *client.HttpClient
}

func NewHTTPTourCatalog(baseURL string) TourCatalog {
	c := client.NewHttpClient(baseURL)
	c.Headers = func(ctx context.Context) map[string]string {
		return map[string]string{middleware.RequestIDHeader: middleware.RequestIDFrom(ctx)}
	}
	return &httpTourCatalog{client: c}
}

func (c *httpTourCatalog) FindActive(ctx context.Context, tourID string) (*model.Tour, error) {
	resp, err := c.client.GET(ctx, "/api/v1/tours/"+url.PathEscape(tourID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bookingserrors.ErrTourUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, bookingserrors.ErrTourNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d: %s", bookingserrors.ErrTourUnavailable, resp.StatusCode, resp.ErrorMessage())
	}

	var envelope struct {
		Data *model.Tour `json:"data"`
	}
	if err := resp.DecodeJSON(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", bookingserrors.ErrTourUnavailable, err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("%w: empty tour payload", bookingserrors.ErrTourUnavailable)
	}
	if !envelope.Data.IsActive {
		return nil, bookingserrors.ErrTourNotFound
	}
	return envelope.Data, nil
}

// MemoryTourCatalog is a seeded catalog for local runs and tests.
type MemoryTourCatalog struct {
	mu    sync.RWMutex
	tours map[string]model.Tour
}

func NewMemoryTourCatalog(tours ...model.Tour) *MemoryTourCatalog {
	c := &MemoryTourCatalog{tours: make(map[string]model.Tour, len(tours))}
	for _, t := range tours {
		c.tours[t.ID] = t
	}
	return c
}

func (c *MemoryTourCatalog) Put(tour model.Tour) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tours[tour.ID] = tour
}

func (c *MemoryTourCatalog) FindActive(_ context.Context, tourID string) (*model.Tour, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tour, ok := c.tours[tourID]
	if !ok || !tour.IsActive {
		return nil, bookingserrors.ErrTourNotFound
	}
	return &tour, nil
}
