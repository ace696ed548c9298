package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/event-snap/internal/domain"
)

// UploadRepo provides typed DynamoDB operations for the uploads table.
type UploadRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUploadRepo(client *dynamodb.Client, tableName string) *UploadRepo {
	return &UploadRepo{client: client, tableName: tableName}
}

func (r *UploadRepo) Put(ctx context.Context, u *domain.Upload) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal upload: %w", err)
	}
	if err := normalizeTimes(item, fieldCreatedAt, fieldDeletedAt); err != nil {
		return fmt.Errorf("marshal upload: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ListByQRCode returns the event's live uploads, oldest first.
func (r *UploadRepo) ListByQRCode(ctx context.Context, qrCodeID string) ([]domain.Upload, error) {
	p := dynamodb.NewQueryPaginator(r.client, r.byQRCode(qrCodeID, types.SelectAllAttributes))
	var uploads []domain.Upload
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.Upload
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		uploads = append(uploads, page...)
	}
	return uploads, nil
}

// CountByQRCode counts the event's live uploads without reading them.
func (r *UploadRepo) CountByQRCode(ctx context.Context, qrCodeID string) (int, error) {
	p := dynamodb.NewQueryPaginator(r.client, r.byQRCode(qrCodeID, types.SelectCount))
	n := 0
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		n += int(out.Count)
	}
	return n, nil
}

func (r *UploadRepo) Get(ctx context.Context, uploadID string) (*domain.Upload, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldUploadID, uploadID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("upload not found: %w", domain.ErrNotFound)
	}
	var u domain.Upload
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UploadRepo) SoftDelete(ctx context.Context, uploadID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldDeletedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUploadID, uploadID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// SoftDeleteByQRCode marks every live upload of the event deleted and
// returns how many it touched.
func (r *UploadRepo) SoftDeleteByQRCode(ctx context.Context, qrCodeID string) (int, error) {
	uploads, err := r.ListByQRCode(ctx, qrCodeID)
	if err != nil {
		return 0, err
	}
	for _, u := range uploads {
		if err := r.SoftDelete(ctx, u.UploadID); err != nil {
			return 0, fmt.Errorf("soft delete upload %s: %w", u.UploadID, err)
		}
	}
	return len(uploads), nil
}

func (r *UploadRepo) byQRCode(qrCodeID string, sel types.Select) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexQRCodeCreated),
		KeyConditionExpression:    aws.String("#q = :q"),
		FilterExpression:          aws.String(notDeleted),
		ExpressionAttributeNames:  map[string]string{"#q": fieldQRCodeID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":q": &types.AttributeValueMemberS{Value: qrCodeID}},
		Select:                    sel,
		ScanIndexForward:          aws.Bool(true),
	}
}
