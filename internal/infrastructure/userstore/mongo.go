// Package userstore implements ports.UserStore against MongoDB, grounded on
// the teacher's internal/infrastructure/db/mongo repository pattern
// (Connect helper + one repository struct per collection, defaultTimeout
// wrapping every call, mongo.ErrNoDocuments mapped to a domain sentinel).
package userstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spritestack/avatar-render/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

const (
	collectionUsers = "users"
	collectionItems = "items"
)

// Config captures the minimal settings required to connect to MongoDB.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a client, verifies connectivity with a ping, and
// returns the selected database.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, err
	}
	return client, client.Database(cfg.Database), nil
}

// userDocument is the wire shape of a user projection. Slots and tattoos
// are stored as flat maps rather than the domain's fixed-size arrays, since
// the projection is written by an upstream service this repository does
// not own (spec §1: "out of scope, only its read contract lives here").
type userDocument struct {
	Username          string                `bson:"username"`
	Sex               string                `bson:"sex"`
	BodyVariant       string                `bson:"body_variant"`
	SkinTone          int                   `bson:"skin_tone"`
	Slots             map[string]itemRefDoc `bson:"slots"`
	Tattoos           map[string]itemRefDoc `bson:"tattoos"`
	ChromaKey         uint8                 `bson:"chroma_key"`
	CustomizationHash uint32                `bson:"customization_hash"`
	AvatarKey         string                `bson:"avatar_key"`
	ClothingKey       string                `bson:"clothing_key"`
	ThumbnailKey      string                `bson:"thumbnail_key"`
}

type itemRefDoc struct {
	ID    string            `bson:"id"`
	Attrs map[string]string `bson:"attrs,omitempty"`
}

type itemDocument struct {
	ID          string `bson:"item_id"`
	Description string `bson:"description"`
}

// Store implements ports.UserStore.
type Store struct {
	users *mongo.Collection
	items *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		users: db.Collection(collectionUsers),
		items: db.Collection(collectionItems),
	}
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return docToUser(doc), nil
}

func (s *Store) UpdateRenderResult(ctx context.Context, username string, hash uint32, avatarKey, clothingKey, thumbnailKey string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.users.UpdateOne(ctx,
		bson.M{"username": username},
		bson.M{"$set": bson.M{
			"customization_hash": hash,
			"avatar_key":         avatarKey,
			"clothing_key":       clothingKey,
			"thumbnail_key":      thumbnailKey,
		}},
	)
	return err
}

func (s *Store) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc itemDocument
	err := s.items.FindOne(ctx, bson.M{"item_id": itemID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.Item{ID: doc.ID, Description: doc.Description}, nil
}

func docToUser(doc userDocument) *domain.User {
	c := domain.Customization{
		Sex:         domain.Sex(doc.Sex),
		BodyVariant: domain.BodyVariant(doc.BodyVariant),
		SkinTone:    doc.SkinTone,
		ChromaKey:   domain.ChromaKeyMode(doc.ChromaKey),
	}
	for i := 0; i < int(domain.SlotCount); i++ {
		name := domain.SlotName(i).String()
		if ref, ok := doc.Slots[name]; ok {
			c.Slots[i] = domain.ItemRef{ID: ref.ID, Attrs: ref.Attrs}
		}
	}
	for i := 0; i < int(domain.TattooSlotCount); i++ {
		name := domain.TattooSlot(i).String()
		if ref, ok := doc.Tattoos[name]; ok {
			c.Tattoos.Slots[i] = domain.ItemRef{ID: ref.ID, Attrs: ref.Attrs}
		}
	}
	return &domain.User{
		Username:          doc.Username,
		Customization:     c,
		CustomizationHash: doc.CustomizationHash,
		AvatarKey:         doc.AvatarKey,
		ClothingKey:       doc.ClothingKey,
		ThumbnailKey:      doc.ThumbnailKey,
	}
}
