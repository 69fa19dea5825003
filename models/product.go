// product.go

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var Categories = []string{
	"Fiction",
	"Non-Fiction",
	"Children's Books",
	"Textbooks",
	"Science & Technology",
	"Literature",
	"History",
	"Business",
	"Self-Help",
	"Comics & Manga",
	"Foreign Language",
	"Poetry",
}

func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Image is a resource stored on the image host. PublicID is the handle used to destroy it.
type Image struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"public_id" json:"public_id"`
}

type Review struct {
	ID      primitive.ObjectID `bson:"_id" json:"_id"`
	User    primitive.ObjectID `bson:"user" json:"user"`
	Name    string             `bson:"name" json:"name"`
	Rating  float64            `bson:"rating" json:"rating"`
	Comment string             `bson:"comment" json:"comment"`
}

type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	Price        float64            `bson:"price" json:"price"`
	Description  string             `bson:"description" json:"description"`
	Category     string             `bson:"category" json:"category"`
	Stock        int                `bson:"Stock" json:"Stock"`
	Images       []Image            `bson:"images" json:"images"`
	Ratings      float64            `bson:"ratings" json:"ratings"`
	NumOfReviews int                `bson:"numOfReviews" json:"numOfReviews"`
	Reviews      []Review           `bson:"reviews" json:"reviews"`
	User         primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// FirstImageURL returns the cover image used in cart and order snapshots.
func (p Product) FirstImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// RecomputeRatings refreshes Ratings and NumOfReviews from Reviews.
func (p *Product) RecomputeRatings() {
	p.NumOfReviews = len(p.Reviews)
	if p.NumOfReviews == 0 {
		p.Ratings = 0
		return
	}
	var sum float64
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Ratings = sum / float64(p.NumOfReviews)
}
