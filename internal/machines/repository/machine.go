package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	machineserrors "labbook/internal/machines/errors"
	"labbook/pkg/config"
	mongotx "labbook/pkg/db/mongo"
	"labbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Machines"
)

type mongoMachineRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type MachineRepository interface {
	Create(ctx context.Context, machine *model.Machine) error
	FindByID(ctx context.Context, id string) (*model.Machine, error)
	FindAll(ctx context.Context, activeOnly bool, limit int, offset int64) ([]*model.Machine, error)
	FindByDepartment(ctx context.Context, department string) ([]*model.Machine, error)
	Search(ctx context.Context, department, location string, activeOnly bool) ([]*model.Machine, error)
	Update(ctx context.Context, id string, machine *model.Machine) (*mongo.UpdateResult, error)
	SetActive(ctx context.Context, id string, active bool) error
	Count(ctx context.Context, activeOnly bool) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoMachineRepository(cfg *config.Config) MachineRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoMachineRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoMachineRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoMachineRepository) Create(ctx context.Context, machine *model.Machine) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	machine.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, machine)
	if err != nil {
		return fmt.Errorf("failed to create machine: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		machine.ID = oid.Hex()
	}
	return nil
}

func (r *mongoMachineRepository) FindByID(ctx context.Context, id string) (*model.Machine, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", machineserrors.ErrInvalidID, id)
	}

	var machine model.Machine
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&machine)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, machineserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find machine: %w", err)
	}

	return &machine, nil
}

func (r *mongoMachineRepository) FindAll(ctx context.Context, activeOnly bool, limit int, offset int64) ([]*model.Machine, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "department", Value: 1}, {Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find machines: %w", err)
	}
	defer cursor.Close(ctx)

	var machines []*model.Machine
	if err = cursor.All(ctx, &machines); err != nil {
		return nil, fmt.Errorf("failed to decode machines: %w", err)
	}

	return machines, nil
}

func (r *mongoMachineRepository) FindByDepartment(ctx context.Context, department string) ([]*model.Machine, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"department": department})
	if err != nil {
		return nil, fmt.Errorf("failed to find machines by department: %w", err)
	}
	defer cursor.Close(ctx)

	var machines []*model.Machine
	if err = cursor.All(ctx, &machines); err != nil {
		return nil, fmt.Errorf("failed to decode machines: %w", err)
	}

	return machines, nil
}

func (r *mongoMachineRepository) Search(ctx context.Context, department, location string, activeOnly bool) ([]*model.Machine, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if department != "" {
		filter["department"] = department
	}
	if location != "" {
		filter["location"] = location
	}
	if activeOnly {
		filter["is_active"] = true
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search machines: %w", err)
	}
	defer cursor.Close(ctx)

	var machines []*model.Machine
	if err = cursor.All(ctx, &machines); err != nil {
		return nil, fmt.Errorf("failed to decode machines: %w", err)
	}

	return machines, nil
}

func (r *mongoMachineRepository) Update(ctx context.Context, id string, machine *model.Machine) (*mongo.UpdateResult, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", machineserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"name":              machine.Name,
			"description":       machine.Description,
			"department":        machine.Department,
			"location":          machine.Location,
			"specifications":    machine.Specifications,
			"image_url":         machine.ImageURL,
			"is_active":         machine.IsActive,
			"requires_training": machine.RequiresTraining,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update machine: %w", err)
	}

	if result.MatchedCount == 0 {
		return nil, machineserrors.ErrNotFound
	}

	return result, nil
}

// SetActive flips the availability flag. Machines referenced by
// bookings are never deleted, only deactivated.
func (r *mongoMachineRepository) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", machineserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"is_active": active}},
	)
	if err != nil {
		return fmt.Errorf("failed to update machine availability: %w", err)
	}

	if result.MatchedCount == 0 {
		return machineserrors.ErrNotFound
	}

	return nil
}

func (r *mongoMachineRepository) Count(ctx context.Context, activeOnly bool) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count machines: %w", err)
	}

	return count, nil
}

func (r *mongoMachineRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
