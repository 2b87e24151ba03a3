package repository

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "labbook/internal/bookings/errors"
	"labbook/pkg/config"
	"labbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MachineFinder is the read-only view of the machine catalogue the
// admission flow needs: an id to active-flag lookup. The machines
// service owns all writes.
type MachineFinder interface {
	FindByID(ctx context.Context, id string) (*model.Machine, error)
}

type mongoMachineFinder struct {
	collection *mongo.Collection
}

func NewMachineFinder(cfg *config.Config) MachineFinder {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoMachineFinder{
		collection: db.Collection("Machines"),
	}
}

func (r *mongoMachineFinder) FindByID(ctx context.Context, id string) (*model.Machine, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var machine model.Machine
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&machine)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrMachineNotFound
		}
		return nil, fmt.Errorf("failed to find machine: %w", err)
	}

	return &machine, nil
}
