package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domain "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/db/models"
)

type cartLineDocument struct {
	ID       string    `bson:"id"`
	Title    string    `bson:"title"`
	Price    float64   `bson:"price"`
	Image    string    `bson:"image,omitempty"`
	Quantity int       `bson:"quantity"`
	AddedAt  time.Time `bson:"added_at"`
}

type activityDocument struct {
	UserID         string             `bson:"_id"`
	Cart           []cartLineDocument `bson:"cart"`
	ViewedProducts []string           `bson:"viewed_products"`
	SearchHistory  []string           `bson:"search_history"`
	MergedSessions []string           `bson:"merged_sessions"`
	LastActivity   time.Time          `bson:"last_activity"`
	Version        int64              `bson:"version"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

func toDocument(row *models.AccountActivity) activityDocument {
	doc := activityDocument{
		UserID:         row.UserID.String(),
		Cart:           make([]cartLineDocument, 0, len(row.Cart)),
		ViewedProducts: nonNil(row.ViewedProducts),
		SearchHistory:  nonNil(row.SearchHistory),
		MergedSessions: nonNil(row.MergedSessions),
		LastActivity:   row.LastActivity.UTC(),
		Version:        row.Version,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	for _, line := range row.Cart {
		doc.Cart = append(doc.Cart, cartLineDocument{
			ID:       line.ID,
			Title:    line.Title,
			Price:    line.Price,
			Image:    line.Image,
			Quantity: line.Quantity,
			AddedAt:  line.AddedAt.UTC(),
		})
	}
	return doc
}

func fromDocument(doc activityDocument) (*models.AccountActivity, error) {
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, err
	}
	row := &models.AccountActivity{
		UserID:         userID,
		Cart:           make([]domain.CartLine, 0, len(doc.Cart)),
		ViewedProducts: nonNil(doc.ViewedProducts),
		SearchHistory:  nonNil(doc.SearchHistory),
		MergedSessions: nonNil(doc.MergedSessions),
		LastActivity:   doc.LastActivity,
		Version:        doc.Version,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	for _, line := range doc.Cart {
		row.Cart = append(row.Cart, domain.CartLine{
			ID:       line.ID,
			Title:    line.Title,
			Price:    line.Price,
			Image:    line.Image,
			Quantity: line.Quantity,
			AddedAt:  line.AddedAt,
		})
	}
	return row, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// MongoRepository stores one document per account, keyed by user id.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll, now: time.Now}
}

func (r *MongoRepository) Get(ctx context.Context, userID uuid.UUID) (*models.AccountActivity, error) {
	var doc activityDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": userID.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromDocument(doc)
}

func (r *MongoRepository) Create(ctx context.Context, row *models.AccountActivity) error {
	now := r.now().UTC()
	if row.Version < 1 {
		row.Version = 1
	}
	row.CreatedAt = now
	row.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, toDocument(row)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrVersionConflict
		}
		return err
	}
	return nil
}

func (r *MongoRepository) Update(ctx context.Context, row *models.AccountActivity) error {
	expected := row.Version
	row.Version = expected + 1
	row.UpdatedAt = r.now().UTC()

	filter := bson.M{"_id": row.UserID.String(), "version": expected}
	res, err := r.coll.ReplaceOne(ctx, filter, toDocument(row))
	if err != nil {
		row.Version = expected
		return err
	}
	if res.MatchedCount == 0 {
		row.Version = expected
		return ErrVersionConflict
	}
	return nil
}
