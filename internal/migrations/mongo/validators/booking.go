package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"customer_ref",
			"tour_ref",
			"booking_date",
			"party",
			"total_amount",
			"status",
			"payment_status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"customer_ref": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"tour_ref": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"booking_date": bson.M{
				"bsonType": "date",
			},

			"party": bson.M{
				"bsonType": "object",
				"required": []string{"adults", "children"},
				"properties": bson.M{
					"adults": bson.M{
						"bsonType": []string{"int", "long"},
						"minimum":  1,
						"maximum":  100,
					},
					"children": bson.M{
						"bsonType": []string{"int", "long"},
						"minimum":  0,
						"maximum":  100,
					},
				},
			},

			"special_requests": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"hotel": bson.M{
				"bsonType": "object",
				"required": []string{"hotel_id", "room_id", "resource_key", "check_in", "check_out"},
				"properties": bson.M{
					"resource_key": bson.M{"bsonType": "string"},
					"check_in":     bson.M{"bsonType": "date"},
					"check_out":    bson.M{"bsonType": "date"},
					"nights": bson.M{
						"bsonType": []string{"int", "long"},
						"minimum":  1,
					},
				},
			},

			"total_amount": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"refund_amount": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"status": bson.M{
				"enum": []string{"pending", "confirmed", "cancelled", "completed"},
			},

			"payment_status": bson.M{
				"enum": []string{"pending", "completed", "failed", "refunded"},
			},

			"payment": bson.M{
				"bsonType": "object",
				"required": []string{"payment_ref", "paid_at"},
			},

			"cancelled_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
