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

// QRCodeRepo provides typed DynamoDB operations for the qrcodes table.
type QRCodeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewQRCodeRepo(client *dynamodb.Client, tableName string) *QRCodeRepo {
	return &QRCodeRepo{client: client, tableName: tableName}
}

func (r *QRCodeRepo) Put(ctx context.Context, q *domain.QRCode) error {
	item, err := attributevalue.MarshalMap(q)
	if err != nil {
		return fmt.Errorf("marshal qrcode: %w", err)
	}
	if err := normalizeTimes(item, fieldExpiresAt, fieldCreatedAt, fieldUpdatedAt, fieldDeletedAt); err != nil {
		return fmt.Errorf("marshal qrcode: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *QRCodeRepo) Get(ctx context.Context, qrCodeID string) (*domain.QRCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldQRCodeID, qrCodeID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("qrcode not found: %w", domain.ErrNotFound)
	}
	var q domain.QRCode
	if err := attributevalue.UnmarshalMap(out.Item, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QRCodeRepo) GetByToken(ctx context.Context, token string) (*domain.QRCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexToken),
		KeyConditionExpression:    aws.String("#t = :t"),
		ExpressionAttributeNames:  map[string]string{"#t": fieldToken},
		ExpressionAttributeValues: map[string]types.AttributeValue{":t": &types.AttributeValueMemberS{Value: token}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("qrcode not found: %w", domain.ErrNotFound)
	}
	var q domain.QRCode
	if err := attributevalue.UnmarshalMap(out.Items[0], &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QRCodeRepo) Update(ctx context.Context, qrCodeID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldQRCodeID, qrCodeID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *QRCodeRepo) SoftDelete(ctx context.Context, qrCodeID string) error {
	return r.Update(ctx, qrCodeID, map[string]interface{}{
		fieldActive:    false,
		fieldDeletedAt: time.Now().UTC(),
	})
}

// ListByOwner returns every code the owner ever created, deleted ones included.
func (r *QRCodeRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.QRCode, error) {
	return r.query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexOwner),
		KeyConditionExpression:    aws.String("#o = :o"),
		ExpressionAttributeNames:  map[string]string{"#o": fieldOwnerID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":o": &types.AttributeValueMemberS{Value: ownerID}},
	})
}

// ListByOwners returns the live codes of every owner in ownerIDs.
func (r *QRCodeRepo) ListByOwners(ctx context.Context, ownerIDs []string) ([]domain.QRCode, error) {
	var all []domain.QRCode
	for _, ownerID := range ownerIDs {
		codes, err := r.query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(indexOwner),
			KeyConditionExpression:    aws.String("#o = :o"),
			FilterExpression:          aws.String(notDeleted),
			ExpressionAttributeNames:  map[string]string{"#o": fieldOwnerID},
			ExpressionAttributeValues: map[string]types.AttributeValue{":o": &types.AttributeValueMemberS{Value: ownerID}},
		})
		if err != nil {
			return nil, fmt.Errorf("list qrcodes of %s: %w", ownerID, err)
		}
		all = append(all, codes...)
	}
	return all, nil
}

// ListExpiredBefore returns live, active codes whose expiry is before cutoff.
func (r *QRCodeRepo) ListExpiredBefore(ctx context.Context, cutoff time.Time) ([]domain.QRCode, error) {
	cut := timeValue(cutoff)
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("#e < :c AND #a = :t AND " + notDeleted),
		ExpressionAttributeNames: map[string]string{
			"#e": fieldExpiresAt,
			"#a": fieldActive,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": cut,
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	var codes []domain.QRCode
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.QRCode
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		codes = append(codes, page...)
	}
	return codes, nil
}

func (r *QRCodeRepo) query(ctx context.Context, input *dynamodb.QueryInput) ([]domain.QRCode, error) {
	p := dynamodb.NewQueryPaginator(r.client, input)
	var codes []domain.QRCode
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.QRCode
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		codes = append(codes, page...)
	}
	return codes, nil
}
