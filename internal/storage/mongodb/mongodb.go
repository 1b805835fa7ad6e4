package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"accounts/internal/domain/models"
	"accounts/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type Storage struct {
	client   *mongo.Client
	database *mongo.Database
	users    *mongo.Collection
}

type userDoc struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	Username      string        `bson:"username"`
	Email         string        `bson:"email"`
	FullName      string        `bson:"fullname"`
	AvatarURL     string        `bson:"avatar_url"`
	CoverImageURL string        `bson:"cover_image_url,omitempty"`
	PassHash      []byte        `bson:"pass_hash"`
	RefreshToken  string        `bson:"refresh_token,omitempty"`
	CreatedAt     time.Time     `bson:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at"`
}

// New creates a new MongoDB storage instance and sets up indexes.
func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "storage.mongodb.New"

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	db := client.Database(database)
	s := &Storage{
		client:   client,
		database: db,
		users:    db.Collection("users"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("%s: indexes: %w", op, err)
	}

	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	// users.username unique
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users.username index: %w", err)
	}

	// users.email unique
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users.email index: %w", err)
	}

	return nil
}

// Close disconnects from MongoDB.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// SaveUser inserts a new account and returns the generated id.
func (s *Storage) SaveUser(ctx context.Context, account *models.Account) (string, error) {
	const op = "storage.mongodb.SaveUser"

	now := time.Now()
	doc := userDoc{
		ID:            bson.NewObjectID(),
		Username:      strings.ToLower(account.Username),
		Email:         account.Email,
		FullName:      account.FullName,
		AvatarURL:     account.AvatarURL,
		CoverImageURL: account.CoverImageURL,
		PassHash:      account.PassHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if isDuplicateKeyError(err) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return doc.ID.Hex(), nil
}

// UserByIdentifier retrieves an account matching the given username or email.
// Empty arguments are left out of the match.
func (s *Storage) UserByIdentifier(ctx context.Context, username, email string) (*models.Account, error) {
	const op = "storage.mongodb.UserByIdentifier"

	var or bson.A
	if username != "" {
		or = append(or, bson.D{{Key: "username", Value: strings.ToLower(username)}})
	}
	if email != "" {
		or = append(or, bson.D{{Key: "email", Value: email}})
	}
	if len(or) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	var doc userDoc
	err := s.users.FindOne(ctx, bson.D{{Key: "$or", Value: or}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.toAccount(), nil
}

// UserByID retrieves an account by id.
func (s *Storage) UserByID(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage.mongodb.UserByID"

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	var doc userDoc
	err = s.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.toAccount(), nil
}

// SetRefreshToken unconditionally overwrites the stored refresh token.
// An empty token clears the field entirely (logout).
func (s *Storage) SetRefreshToken(ctx context.Context, id string, token string) error {
	const op = "storage.mongodb.SetRefreshToken"

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	var update bson.D
	if token == "" {
		update = bson.D{
			{Key: "$unset", Value: bson.D{{Key: "refresh_token", Value: 1}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now()}}},
		}
	} else {
		update = bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "refresh_token", Value: token},
				{Key: "updated_at", Value: time.Now()},
			}},
		}
	}

	res, err := s.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}

// CompareAndSwapRefreshToken replaces the stored refresh token only if it
// still equals expected. The match-and-set runs as a single conditional
// update, so of two racing rotations exactly one can win.
func (s *Storage) CompareAndSwapRefreshToken(ctx context.Context, id, expected, newToken string) (bool, error) {
	const op = "storage.mongodb.CompareAndSwapRefreshToken"

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	res, err := s.users.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: oid},
			{Key: "refresh_token", Value: expected},
		},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "refresh_token", Value: newToken},
				{Key: "updated_at", Value: time.Now()},
			}},
		},
	)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return res.MatchedCount == 1, nil
}

// UpdatePassHash replaces the stored password hash.
func (s *Storage) UpdatePassHash(ctx context.Context, id string, passHash []byte) error {
	const op = "storage.mongodb.UpdatePassHash"

	return s.setFields(ctx, op, id, bson.D{{Key: "pass_hash", Value: passHash}})
}

// UpdateDetails updates the mutable profile fields.
func (s *Storage) UpdateDetails(ctx context.Context, id, fullName, email string) error {
	const op = "storage.mongodb.UpdateDetails"

	fields := bson.D{}
	if fullName != "" {
		fields = append(fields, bson.E{Key: "fullname", Value: fullName})
	}
	if email != "" {
		fields = append(fields, bson.E{Key: "email", Value: email})
	}

	return s.setFields(ctx, op, id, fields)
}

// UpdateAvatar replaces the avatar URL.
func (s *Storage) UpdateAvatar(ctx context.Context, id, url string) error {
	const op = "storage.mongodb.UpdateAvatar"

	return s.setFields(ctx, op, id, bson.D{{Key: "avatar_url", Value: url}})
}

// UpdateCoverImage replaces the cover image URL.
func (s *Storage) UpdateCoverImage(ctx context.Context, id, url string) error {
	const op = "storage.mongodb.UpdateCoverImage"

	return s.setFields(ctx, op, id, bson.D{{Key: "cover_image_url", Value: url}})
}

func (s *Storage) setFields(ctx context.Context, op, id string, fields bson.D) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	fields = append(fields, bson.E{Key: "updated_at", Value: time.Now()})

	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: fields}},
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}

func (d *userDoc) toAccount() *models.Account {
	return &models.Account{
		ID:            d.ID.Hex(),
		Username:      d.Username,
		Email:         d.Email,
		FullName:      d.FullName,
		AvatarURL:     d.AvatarURL,
		CoverImageURL: d.CoverImageURL,
		PassHash:      d.PassHash,
		RefreshToken:  d.RefreshToken,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// isDuplicateKeyError checks if the error is a MongoDB duplicate key error (code 11000).
func isDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
