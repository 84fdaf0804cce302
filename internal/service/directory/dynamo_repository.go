package directory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sales-routing-backend/internal/database"
	"sales-routing-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) *DynamoRepository {
	return &DynamoRepository{db: db}
}

func sellerKey(sellerID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"sellerId": database.AttrString(sellerID)}
}

func assignmentKey(conversationID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"conversationId": database.AttrString(conversationID)}
}

var sellerExists = &database.Condition{Expression: "attribute_exists(sellerId)"}

func (r *DynamoRepository) GetSeller(ctx context.Context, sellerID string) (model.SellerItem, error) {
	var seller model.SellerItem
	err := r.db.Client.GetItem(ctx, model.SellersTable, sellerKey(sellerID), &seller)
	if err != nil {
		if database.IsNotFound(err) {
			return model.SellerItem{}, ErrNotFound
		}
		return model.SellerItem{}, err
	}
	return seller, nil
}

func (r *DynamoRepository) ListSellers(ctx context.Context, filter Filter) ([]model.SellerItem, error) {
	items, err := r.db.Client.ScanAll(ctx, model.SellersTable)
	if err != nil {
		return nil, err
	}
	all, err := database.UnmarshalItems[model.SellerItem](items)
	if err != nil {
		return nil, err
	}

	sellers := make([]model.SellerItem, 0, len(all))
	for _, s := range all {
		if filter.match(s) {
			sellers = append(sellers, s)
		}
	}
	sort.Slice(sellers, func(i, j int) bool {
		return sellers[i].SellerID < sellers[j].SellerID
	})
	return sellers, nil
}

func (r *DynamoRepository) CreateSeller(ctx context.Context, seller model.SellerItem) error {
	err := r.db.Client.PutItemWithCondition(ctx, model.SellersTable, seller, &database.Condition{
		Expression: "attribute_not_exists(sellerId)",
	})
	if database.IsConditionFailed(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *DynamoRepository) UpdateSeller(ctx context.Context, sellerID string, update SellerUpdate) (model.SellerItem, error) {
	values := map[string]types.AttributeValue{}
	var fields []string
	set := func(name string, v interface{}) error {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		values[":"+name] = av
		fields = append(fields, name)
		return nil
	}

	var current model.SellerItem
	update.apply(&current)
	pairs := []struct {
		changed bool
		name    string
		value   interface{}
	}{
		{update.DisplayName != nil, "displayName", current.DisplayName},
		{update.ContactHandle != nil, "contactHandle", current.ContactHandle},
		{update.Specialty != nil, "specialty", current.Specialty},
		{update.Status != nil, "status", current.Status},
		{update.Active != nil, "active", current.Active},
		{update.MaxClients != nil, "maxClients", current.MaxClients},
		{update.CurrentClients != nil, "currentClients", current.CurrentClients},
		{update.Rating != nil, "rating", current.Rating},
		{update.WorkStart != nil, "workStart", current.WorkStart},
		{update.WorkEnd != nil, "workEnd", current.WorkEnd},
		{update.DaysOff != nil, "daysOff", current.DaysOff},
		{update.NotificationIntervalMinutes != nil, "notificationIntervalMinutes", current.NotificationIntervalMinutes},
		{!update.UpdatedAt.IsZero(), "updatedAt", current.UpdatedAt},
	}
	for _, p := range pairs {
		if !p.changed {
			continue
		}
		if err := set(p.name, p.value); err != nil {
			return model.SellerItem{}, err
		}
	}
	if len(fields) == 0 {
		return r.GetSeller(ctx, sellerID)
	}

	names := make(map[string]string, len(fields))
	for _, f := range fields {
		names["#"+f] = f
	}

	var seller model.SellerItem
	err := r.db.Client.UpdateItem(
		ctx,
		model.SellersTable,
		sellerKey(sellerID),
		database.SetExpression(fields),
		values,
		names,
		sellerExists,
		&seller,
	)
	if database.IsConditionFailed(err) {
		return model.SellerItem{}, ErrNotFound
	}
	if err != nil {
		return model.SellerItem{}, err
	}
	return seller, nil
}

func (r *DynamoRepository) DeleteSeller(ctx context.Context, sellerID string) error {
	err := r.db.Client.DeleteItem(ctx, model.SellersTable, sellerKey(sellerID), sellerExists)
	if database.IsConditionFailed(err) {
		return ErrNotFound
	}
	return err
}

func (r *DynamoRepository) IncrementClients(ctx context.Context, sellerID string) (int, error) {
	var seller model.SellerItem
	err := r.db.Client.UpdateItem(
		ctx,
		model.SellersTable,
		sellerKey(sellerID),
		"ADD #currentClients :one",
		map[string]types.AttributeValue{":one": database.AttrNumber(1)},
		map[string]string{"#currentClients": "currentClients"},
		sellerExists,
		&seller,
	)
	if database.IsConditionFailed(err) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return seller.CurrentClients, nil
}

func (r *DynamoRepository) DecrementClients(ctx context.Context, sellerID string) (int, error) {
	var seller model.SellerItem
	err := r.db.Client.UpdateItem(
		ctx,
		model.SellersTable,
		sellerKey(sellerID),
		"ADD #currentClients :minusOne",
		map[string]types.AttributeValue{":minusOne": database.AttrNumber(-1)},
		map[string]string{"#currentClients": "currentClients"},
		&database.Condition{
			Expression: "attribute_exists(sellerId) AND #currentClients > :zero",
			Values:     map[string]types.AttributeValue{":zero": database.AttrNumber(0)},
		},
		&seller,
	)
	if database.IsConditionFailed(err) {
		// Either the seller is gone or the counter already sits at the floor.
		if _, getErr := r.GetSeller(ctx, sellerID); getErr != nil {
			return 0, getErr
		}
		return 0, ErrCounterAtFloor
	}
	if err != nil {
		return 0, err
	}
	return seller.CurrentClients, nil
}

func (r *DynamoRepository) SaveAssignment(ctx context.Context, assignment model.AssignmentItem) error {
	err := r.db.Client.PutItemWithCondition(ctx, model.AssignmentsTable, assignment, &database.Condition{
		Expression: "attribute_not_exists(conversationId) OR #status <> :active",
		Names:      map[string]string{"#status": "status"},
		Values:     map[string]types.AttributeValue{":active": database.AttrString(string(model.AssignmentStatusActive))},
	})
	if database.IsConditionFailed(err) {
		return ErrActiveAssignmentExists
	}
	return err
}

// CompleteAssignment retires the active binding and copies it to the history table
// in one transaction.
func (r *DynamoRepository) CompleteAssignment(ctx context.Context, conversationID string, completedAt time.Time) (model.AssignmentItem, error) {
	var current model.AssignmentItem
	err := r.db.Client.GetItem(ctx, model.AssignmentsTable, assignmentKey(conversationID), &current)
	if err != nil {
		if database.IsNotFound(err) {
			return model.AssignmentItem{}, ErrNotFound
		}
		return model.AssignmentItem{}, err
	}
	if current.Status != model.AssignmentStatusActive {
		return current, ErrAlreadyCompleted
	}

	completed := current
	completed.Status = model.AssignmentStatusCompleted
	completed.CompletedAt = completedAt.UTC().Format(time.RFC3339)

	history, err := attributevalue.MarshalMap(model.AssignmentHistoryItem{
		PK:             model.AssignmentHistoryPK(completed.ConversationID, completed.AssignedAt),
		ConversationID: completed.ConversationID,
		SellerID:       completed.SellerID,
		AssignedAt:     completed.AssignedAt,
		CompletedAt:    completed.CompletedAt,
	})
	if err != nil {
		return model.AssignmentItem{}, fmt.Errorf("marshal assignment history: %w", err)
	}

	err = r.db.Client.TransactWrite(ctx, []types.TransactWriteItem{
		{
			Update: &types.Update{
				TableName:           aws.String(model.AssignmentsTable),
				Key:                 assignmentKey(conversationID),
				UpdateExpression:    aws.String("SET #status = :completed, #completedAt = :completedAt"),
				ConditionExpression: aws.String("#status = :active AND #assignedAt = :assignedAt"),
				ExpressionAttributeNames: map[string]string{
					"#status":      "status",
					"#completedAt": "completedAt",
					"#assignedAt":  "assignedAt",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":completed":   database.AttrString(string(model.AssignmentStatusCompleted)),
					":completedAt": database.AttrString(completed.CompletedAt),
					":active":      database.AttrString(string(model.AssignmentStatusActive)),
					":assignedAt":  database.AttrString(current.AssignedAt),
				},
			},
		},
		{
			Put: &types.Put{
				TableName: aws.String(model.AssignmentHistoryTable),
				Item:      history,
			},
		},
	})
	if database.IsConditionFailed(err) {
		return current, ErrAlreadyCompleted
	}
	if err != nil {
		return model.AssignmentItem{}, err
	}
	return completed, nil
}

func (r *DynamoRepository) FindActiveAssignments(ctx context.Context) ([]model.AssignmentItem, error) {
	items, err := r.db.Client.ScanAllWithFilter(
		ctx,
		model.AssignmentsTable,
		"#status = :active",
		map[string]types.AttributeValue{":active": database.AttrString(string(model.AssignmentStatusActive))},
		map[string]string{"#status": "status"},
	)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalItems[model.AssignmentItem](items)
}
