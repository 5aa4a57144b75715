package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"user-management-api/internal/domain/user"
	pkgerrors "user-management-api/pkg/errors"
)

// CollectionName is the collection holding user documents.
const CollectionName = "users"

// userDocument is the stored shape of a user.
type userDocument struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	FirstName    string        `bson:"firstName"`
	LastName     string        `bson:"lastName"`
	Email        string        `bson:"email"`
	Phone        string        `bson:"phone"`
	PasswordHash string        `bson:"password"`
	CreatedDate  time.Time     `bson:"createdDate"`
	UpdatedDate  time.Time     `bson:"updatedDate"`
}

func (d userDocument) toDomain() *user.User {
	return &user.User{
		ID:           d.ID.Hex(),
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		Phone:        d.Phone,
		PasswordHash: d.PasswordHash,
		CreatedDate:  d.CreatedDate.UTC(),
		UpdatedDate:  d.UpdatedDate.UTC(),
	}
}

// UserRepoMongo implements the user Repository on a MongoDB collection.
type UserRepoMongo struct {
	coll *mongo.Collection
	log  *zap.Logger
}

// NewUserRepoMongo creates a repository over db.users.
func NewUserRepoMongo(db *mongo.Database, log *zap.Logger) *UserRepoMongo {
	return &UserRepoMongo{coll: db.Collection(CollectionName), log: log}
}

// EnsureIndexes creates the unique email index and the listing index.
func (r *UserRepoMongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys:    bson.D{{Key: "createdDate", Value: -1}},
			Options: options.Index().SetName("created_date_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

// Create inserts a new user document.
func (r *UserRepoMongo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	doc := userDocument{
		ID:           bson.NewObjectID(),
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		Phone:        u.Phone,
		PasswordHash: u.PasswordHash,
		CreatedDate:  u.CreatedDate,
		UpdatedDate:  u.UpdatedDate,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.log.Warn("duplicate email on create", zap.String("email", u.Email))
			return nil, errDuplicateEmail()
		}
		r.log.Error("failed to insert user", zap.Error(err), zap.String("email", u.Email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in mongo", zap.String("id", doc.ID.Hex()))
	return doc.toDomain(), nil
}

// Update applies the mutable fields with a single FindOneAndUpdate.
func (r *UserRepoMongo) Update(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	oid, err := bson.ObjectIDFromHex(u.ID)
	if err != nil {
		return nil, errUserNotFound()
	}

	update := bson.M{"$set": bson.M{
		"firstName":   u.FirstName,
		"lastName":    u.LastName,
		"email":       u.Email,
		"phone":       u.Phone,
		"updatedDate": u.UpdatedDate,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	switch {
	case err == nil:
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, errUserNotFound()
	case mongo.IsDuplicateKeyError(err):
		r.log.Warn("duplicate email on update", zap.String("id", u.ID))
		return nil, errDuplicateEmail()
	default:
		r.log.Error("failed to update user", zap.Error(err), zap.String("id", u.ID))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return doc.toDomain(), nil
}

// Delete removes a user document by ID.
func (r *UserRepoMongo) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return errUserNotFound()
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.log.Error("failed to delete user", zap.Error(err), zap.String("id", id))
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return errUserNotFound()
	}
	return nil
}

// GetByID finds a user by its hex ObjectID. Malformed IDs are not found.
func (r *UserRepoMongo) GetByID(ctx context.Context, id string) (*user.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, errUserNotFound()
	}
	return r.findOne(ctx, bson.M{"_id": oid}, errUserNotFound())
}

// GetByEmail finds a user by email, returning (nil, nil) when absent.
func (r *UserRepoMongo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, nil)
}

func (r *UserRepoMongo) findOne(ctx context.Context, filter bson.M, notFound error) (*user.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound
		}
		r.log.Error("failed to find user", zap.Error(err))
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns every user, newest first.
func (r *UserRepoMongo) List(ctx context.Context) ([]user.User, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "createdDate", Value: -1},
		{Key: "_id", Value: -1},
	})

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.log.Error("failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]user.User, len(docs))
	for i := range docs {
		users[i] = *docs[i].toDomain()
	}
	return users, nil
}

func errUserNotFound() error {
	return pkgerrors.NewNotFoundError("user", "User not found")
}

func errDuplicateEmail() error {
	return pkgerrors.NewAlreadyExistsError("user", "User already exists with this email")
}
