package models

import "time"

// Review is an immutable rating left on an agency.
type Review struct {
	ID        string    `bson:"id" json:"id"`
	Author    string    `bson:"author" json:"author"`
	Comment   string    `bson:"comment" json:"comment"`
	Stars     int       `bson:"stars" json:"stars"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ReviewInput is the payload for a new review.
type ReviewInput struct {
	Author  string `json:"author"`
	Comment string `json:"comment"`
	Stars   int    `json:"stars"`
}

// ReviewSummary is the recomputed aggregate after a review is appended.
type ReviewSummary struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}
