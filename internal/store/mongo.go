package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"bustrack/internal/domain"
)

// MongoStore is the document-database JourneyStore. One journey is one
// document; ApplyUpdate maps to a single UpdateOne built from $set, $push
// and $inc operators, so every update is atomic at document granularity
// and concurrent writes to disjoint subtrees never clobber each other.
type MongoStore struct {
	client         *mongo.Client
	journeys       *mongo.Collection
	maxPathSamples int
}

// Dial connects to MongoDB and returns a store over the journeys
// collection in dbName. The connection is verified with a ping before
// returning, so a down database fails fast and lets main fall back to the
// in-memory store.
func Dial(ctx context.Context, uri, dbName string, maxPathSamples int) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &MongoStore{
		client:         client,
		journeys:       client.Database(dbName).Collection("journeys"),
		maxPathSamples: maxPathSamples,
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Create(ctx context.Context, p CreateParams) (*domain.Journey, error) {
	if err := validateCreate(p); err != nil {
		return nil, err
	}

	j := &domain.Journey{
		ID:            uuid.New().String(),
		StaffID:       p.StaffID,
		StartingPoint: p.StartingPoint,
		Destination:   p.Destination,
		Route:         p.Route,
		Highway:       p.Highway,
		BusNumber:     p.BusNumber,
		DriverName:    p.DriverName,
		ConductorName: p.ConductorName,
		Depot:         p.Depot,
		Status:        domain.StatusStarting,
		StartedAt:     time.Now(),
		Path:          []domain.PathSample{},
	}

	if _, err := s.journeys.InsertOne(ctx, j); err != nil {
		return nil, fmt.Errorf("%w: insert journey: %v", domain.ErrPersistence, err)
	}
	return j, nil
}

func (s *MongoStore) FindOwned(ctx context.Context, journeyID, staffID string) (*domain.Journey, error) {
	return s.findOne(ctx, bson.M{"_id": journeyID, "staffId": staffID})
}

func (s *MongoStore) FindByID(ctx context.Context, journeyID string) (*domain.Journey, error) {
	return s.findOne(ctx, bson.M{"_id": journeyID})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*domain.Journey, error) {
	var j domain.Journey
	err := s.journeys.FindOne(ctx, filter).Decode(&j)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find journey: %v", domain.ErrPersistence, err)
	}
	return &j, nil
}

func (s *MongoStore) ListActive(ctx context.Context) ([]*domain.Journey, error) {
	filter := bson.M{"status": bson.M{"$in": bson.A{domain.StatusStarting, domain.StatusRunning}}}
	opts := options.Find().SetSort(bson.M{"startedAt": -1})

	cur, err := s.journeys.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list active journeys: %v", domain.ErrPersistence, err)
	}
	defer cur.Close(ctx)

	var result []*domain.Journey
	for cur.Next(ctx) {
		var j domain.Journey
		if err := cur.Decode(&j); err != nil {
			return nil, fmt.Errorf("%w: decode journey: %v", domain.ErrPersistence, err)
		}
		result = append(result, &j)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate journeys: %v", domain.ErrPersistence, err)
	}
	return result, nil
}

func (s *MongoStore) ApplyUpdate(ctx context.Context, journeyID string, u Update) (*domain.Journey, error) {
	if u.empty() {
		return s.FindByID(ctx, journeyID)
	}

	set := bson.M{}
	update := bson.M{}

	if u.Status != nil {
		set["status"] = *u.Status
		if u.CompletedAt != nil {
			set["completedAt"] = *u.CompletedAt
		}
	}

	if u.Fix != nil {
		set["currentLocation"] = u.Fix.Location
		push := bson.M{"$each": bson.A{u.Fix.Sample}}
		if s.maxPathSamples > 0 {
			push["$slice"] = -s.maxPathSamples
		}
		update["$push"] = bson.M{"path": push}
		update["$inc"] = bson.M{"distanceCoveredKm": u.Fix.DistanceIncrementKm}
	}

	if u.SeatInfo != nil {
		set["seatInfo"] = u.SeatInfo
	}

	if len(set) > 0 {
		update["$set"] = set
	}

	res := s.journeys.FindOneAndUpdate(ctx,
		bson.M{"_id": journeyID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated domain.Journey
	err := res.Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update journey: %v", domain.ErrPersistence, err)
	}
	return &updated, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}
