package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Book conditions accepted for a listing.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like-new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

var ValidConditions = []string{ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor}

// Image is a cover stored on the image host. DeleteHandle is the object key used to remove it.
type Image struct {
	URL          string `bson:"url" json:"url"`
	DeleteHandle string `bson:"deleteHandle" json:"-"`
}

type Contact struct {
	Platform string `bson:"platform" json:"platform"`
	Handle   string `bson:"handle" json:"handle"`
}

// Book is a listing offered for exchange.
type Book struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Author      string             `bson:"author" json:"author"`
	Genre       string             `bson:"genre" json:"genre"`
	Condition   string             `bson:"condition" json:"condition"`
	Description string             `bson:"description" json:"description"`
	Image       Image              `bson:"image" json:"image"`
	Contact     Contact            `bson:"contact" json:"contact"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	Likes       int                `bson:"likes" json:"likes"`
}

// BookPatch is the allow-list of owner-editable listing fields. Nil fields are left alone.
type BookPatch struct {
	Title           *string
	Author          *string
	Genre           *string
	Condition       *string
	Description     *string
	ContactPlatform *string
	ContactHandle   *string
}

func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.Genre == nil && p.Condition == nil &&
		p.Description == nil && p.ContactPlatform == nil && p.ContactHandle == nil
}
