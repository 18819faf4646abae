package store

import (
	"context"
	"errors"

	"github.com/kevinaaaquil/bookswap/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error) {
	books, err := db.books(ctx)
	if err != nil {
		return primitive.NilObjectID, err
	}
	res, err := books.InsertOne(ctx, book, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) findBooks(ctx context.Context, filter bson.M) ([]models.Book, error) {
	books, err := db.books(ctx)
	if err != nil {
		return nil, err
	}
	cur, err := books.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Book{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AllBooks returns every listing, newest first.
func (db *DB) AllBooks(ctx context.Context) ([]models.Book, error) {
	return db.findBooks(ctx, bson.M{})
}

// BooksByOwner returns the owner's listings, newest first.
func (db *DB) BooksByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Book, error) {
	return db.findBooks(ctx, bson.M{"userId": owner})
}

// BookForOwner returns the listing only if owner owns it; nil otherwise.
func (db *DB) BookForOwner(ctx context.Context, id, owner primitive.ObjectID) (*models.Book, error) {
	books, err := db.books(ctx)
	if err != nil {
		return nil, err
	}
	var book models.Book
	err = books.FindOne(ctx, bson.M{"_id": id, "userId": owner}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// UpdateBookForOwner applies patch in one find-and-update filtered on id and owner.
// Returns nil when the listing is absent or owned by someone else.
func (db *DB) UpdateBookForOwner(ctx context.Context, id, owner primitive.ObjectID, patch models.BookPatch) (*models.Book, error) {
	books, err := db.books(ctx)
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	for field, v := range map[string]*string{
		"title":            patch.Title,
		"author":           patch.Author,
		"genre":            patch.Genre,
		"condition":        patch.Condition,
		"description":      patch.Description,
		"contact.platform": patch.ContactPlatform,
		"contact.handle":   patch.ContactHandle,
	} {
		if v != nil {
			set[field] = *v
		}
	}
	if len(set) == 0 {
		return db.BookForOwner(ctx, id, owner)
	}

	var book models.Book
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = books.FindOneAndUpdate(ctx, bson.M{"_id": id, "userId": owner}, bson.M{"$set": set}, opts).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// DeleteBookForOwner removes the listing if owner owns it and reports whether it did.
func (db *DB) DeleteBookForOwner(ctx context.Context, id, owner primitive.ObjectID) (bool, error) {
	books, err := db.books(ctx)
	if err != nil {
		return false, err
	}
	res, err := books.DeleteOne(ctx, bson.M{"_id": id, "userId": owner})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// IncrementLikes atomically adds one like and returns the updated listing, or nil if absent.
func (db *DB) IncrementLikes(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	books, err := db.books(ctx)
	if err != nil {
		return nil, err
	}
	var book models.Book
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = books.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"likes": 1}}, opts).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}
