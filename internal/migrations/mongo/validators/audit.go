package validators

import "go.mongodb.org/mongo-driver/bson"

var AuditValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"event_id",
			"event_type",
			"booking_id",
			"machine_id",
			"actor_id",
			"new_status",
			"occurred_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"event_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"event_type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"booking.created",
					"booking.approved",
					"booking.rejected",
					"booking.cancelled",
				},
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"machine_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"actor_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"actor_role": bson.M{
				"bsonType": "string",
			},

			"old_status": bson.M{
				"bsonType": "string",
			},

			"new_status": bson.M{
				"bsonType": "string",
			},

			"occurred_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
