package model

type Tour struct {
	ID       string  `json:"id" bson:"_id"`
	Title    string  `json:"title" bson:"title"`
	Price    float64 `json:"price" bson:"price"`
	IsActive bool    `json:"is_active" bson:"is_active"`
}
