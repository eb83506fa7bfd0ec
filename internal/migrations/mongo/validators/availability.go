package validators

import "go.mongodb.org/mongo-driver/bson"

var AvailabilityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"resource_key", "date", "status"},
		"additionalProperties": true,

		"properties": bson.M{
			"resource_key": bson.M{
				"bsonType":  "string",
				"pattern":   "^(tour:[^:]+|room:[^:]+:[^:]+)$",
				"maxLength": 140,
			},

			// Stored at UTC midnight.
			"date": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"enum": []string{"available", "limited", "booked"},
			},

			"capacity": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"reservation_ref": bson.M{
				"bsonType": "string",
			},
		},
	},
}

var PendingReleaseValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"resource_key", "dates", "booking_ref", "attempts", "next_attempt_at"},

		"properties": bson.M{
			"dates": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items":    bson.M{"bsonType": "date"},
			},
			"attempts": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
			"next_attempt_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var TourValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"title", "price", "is_active"},

		"properties": bson.M{
			"title": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"price": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},
			"is_active": bson.M{
				"bsonType": "bool",
			},
		},
	},
}
