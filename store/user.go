package store

import (
	"context"
	"errors"
	"time"

	"github.com/kevinaaaquil/bookswap/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	users, err := db.users(ctx)
	if err != nil {
		return nil, err
	}
	var u models.User
	err = users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return db.findUser(ctx, bson.M{"_id": id})
}

func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.findUser(ctx, bson.M{"email": email})
}

// UserByUsernameOrEmail returns any user other than exclude whose username or email matches.
// Empty arguments are ignored; pass primitive.NilObjectID to exclude nobody.
func (db *DB) UserByUsernameOrEmail(ctx context.Context, username, email string, exclude primitive.ObjectID) (*models.User, error) {
	var or bson.A
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, nil
	}
	filter := bson.M{"$or": or}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	return db.findUser(ctx, filter)
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	users, err := db.users(ctx)
	if err != nil {
		return primitive.NilObjectID, err
	}
	res, err := users.InsertOne(ctx, user, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, duplicate(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// RecordLoginFailure bumps the failed-login counter and stamps the failure time.
// With reset the counter restarts at 1 instead of incrementing.
func (db *DB) RecordLoginFailure(ctx context.Context, id primitive.ObjectID, at time.Time, reset bool) error {
	users, err := db.users(ctx)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{"lastFailedLogin": at}}
	if reset {
		update["$set"].(bson.M)["failedLoginAttempts"] = 1
	} else {
		update["$inc"] = bson.M{"failedLoginAttempts": 1}
	}
	_, err = users.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// RecordLoginSuccess clears the failure counter and stamps the login time.
func (db *DB) RecordLoginSuccess(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	users, err := db.users(ctx)
	if err != nil {
		return err
	}
	_, err = users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"failedLoginAttempts": 0, "lastLogin": at},
		"$unset": bson.M{"lastFailedLogin": ""},
	})
	return err
}

// UpdateUser applies patch and returns the updated user, or nil if id does not exist.
func (db *DB) UpdateUser(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	users, err := db.users(ctx)
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	if patch.Username != nil {
		set["username"] = *patch.Username
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Password != nil {
		set["password"] = *patch.Password
	}
	for k, v := range patch.ProfileSet {
		set["profile."+k] = v
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(patch.ProfileUnset) > 0 {
		unset := bson.M{}
		for _, k := range patch.ProfileUnset {
			unset["profile."+k] = ""
		}
		update["$unset"] = unset
	}
	if len(update) == 0 {
		return db.UserByID(ctx, id)
	}

	var u models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = users.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, duplicate(err)
	}
	return &u, nil
}

// DeleteUser removes the user. It reports whether a document was deleted.
func (db *DB) DeleteUser(ctx context.Context, id primitive.ObjectID) (bool, error) {
	users, err := db.users(ctx)
	if err != nil {
		return false, err
	}
	res, err := users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
