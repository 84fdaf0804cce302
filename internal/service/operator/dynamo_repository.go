package operator

import (
	"context"
	"sort"

	"sales-routing-backend/internal/database"
	"sales-routing-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) *DynamoRepository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) Create(ctx context.Context, op model.OperatorItem) error {
	err := r.db.Client.PutItemWithCondition(ctx, model.OperatorsTable, op, &database.Condition{
		Expression: "attribute_not_exists(email)",
	})
	if database.IsConditionFailed(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *DynamoRepository) GetByEmail(ctx context.Context, email string) (model.OperatorItem, error) {
	var op model.OperatorItem
	err := r.db.Client.GetItem(
		ctx,
		model.OperatorsTable,
		map[string]types.AttributeValue{"email": database.AttrString(email)},
		&op,
	)
	if err != nil {
		if database.IsNotFound(err) {
			return model.OperatorItem{}, ErrNotFound
		}
		return model.OperatorItem{}, err
	}
	return op, nil
}

func (r *DynamoRepository) List(ctx context.Context) ([]model.OperatorItem, error) {
	items, err := r.db.Client.ScanAll(ctx, model.OperatorsTable)
	if err != nil {
		return nil, err
	}
	ops, err := database.UnmarshalItems[model.OperatorItem](items)
	if err != nil {
		return nil, err
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Email < ops[j].Email })
	return ops, nil
}
