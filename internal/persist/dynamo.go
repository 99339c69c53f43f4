// Package persist stores orders, admin orders, categories and player
// statistics in DynamoDB. The board runs from memory; this package is the
// write-behind durability layer loaded at startup and flushed on save cycles.
package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/thornegames/orderboard/internal/aws"
	"github.com/thornegames/orderboard/internal/market"
)

// batchWriteChunk is the DynamoDB BatchWriteItem request limit.
const batchWriteChunk = 25

// Tables names the DynamoDB tables backing the board.
type Tables struct {
	Orders      string
	AdminOrders string
	Categories  string
	Stats       string
}

// Store encapsulates operations on the board's DynamoDB tables.
type Store struct {
	client  aws.DynamoDBAPI
	tables  Tables
	nowFunc func() time.Time
}

// NewStore creates a Store over the given tables.
func NewStore(client aws.DynamoDBAPI, tables Tables) *Store {
	return &Store{
		client:  client,
		tables:  tables,
		nowFunc: time.Now,
	}
}

// LoadOrders scans the orders table and returns every stored order.
func (s *Store) LoadOrders(ctx context.Context) ([]*market.Order, error) {
	var out []*market.Order
	err := s.scan(ctx, s.tables.Orders, func(item map[string]types.AttributeValue) error {
		var r orderRecord
		if err := attributevalue.UnmarshalMap(item, &r); err != nil {
			return fmt.Errorf("unmarshal order: %w", err)
		}
		out = append(out, r.toOrder())
		return nil
	})
	return out, err
}

// SaveOrders writes every order in one batched pass.
func (s *Store) SaveOrders(ctx context.Context, orders []*market.Order) error {
	now := s.nowFunc()
	items := make([]map[string]types.AttributeValue, 0, len(orders))
	for _, o := range orders {
		item, err := attributevalue.MarshalMap(recordFromOrder(o, now))
		if err != nil {
			return fmt.Errorf("marshal order %s: %w", o.ID, err)
		}
		items = append(items, item)
	}
	return s.batchPut(ctx, s.tables.Orders, items)
}

// PutOrder writes a single order.
func (s *Store) PutOrder(ctx context.Context, o *market.Order) error {
	item, err := attributevalue.MarshalMap(recordFromOrder(o, s.nowFunc()))
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", o.ID, err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tables.Orders,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put order %s: %w", o.ID, err)
	}
	return nil
}

// DeleteOrder removes an order row. Deleting a missing row is not an error.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	return s.deleteByID(ctx, s.tables.Orders, id)
}

// UpdateOrderStatus overwrites the stored status for an order.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status market.OrderStatus) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tables.Orders,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:         awsString("SET #s = :s, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s":  &types.AttributeValueMemberS{Value: string(status)},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("update order %s status: %w", id, err)
	}
	return nil
}

// LoadAdminOrders scans the admin orders table.
func (s *Store) LoadAdminOrders(ctx context.Context) ([]*market.AdminOrder, error) {
	var out []*market.AdminOrder
	err := s.scan(ctx, s.tables.AdminOrders, func(item map[string]types.AttributeValue) error {
		var r adminOrderRecord
		if err := attributevalue.UnmarshalMap(item, &r); err != nil {
			return fmt.Errorf("unmarshal admin order: %w", err)
		}
		out = append(out, r.toAdminOrder())
		return nil
	})
	return out, err
}

// SaveAdminOrders writes every admin order in one batched pass.
func (s *Store) SaveAdminOrders(ctx context.Context, orders []*market.AdminOrder) error {
	now := s.nowFunc()
	items := make([]map[string]types.AttributeValue, 0, len(orders))
	for _, o := range orders {
		item, err := attributevalue.MarshalMap(recordFromAdminOrder(o, now))
		if err != nil {
			return fmt.Errorf("marshal admin order %s: %w", o.ID, err)
		}
		items = append(items, item)
	}
	return s.batchPut(ctx, s.tables.AdminOrders, items)
}

// PutAdminOrder writes a single admin order.
func (s *Store) PutAdminOrder(ctx context.Context, o *market.AdminOrder) error {
	item, err := attributevalue.MarshalMap(recordFromAdminOrder(o, s.nowFunc()))
	if err != nil {
		return fmt.Errorf("marshal admin order %s: %w", o.ID, err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tables.AdminOrders,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put admin order %s: %w", o.ID, err)
	}
	return nil
}

// DeleteAdminOrder removes an admin order row.
func (s *Store) DeleteAdminOrder(ctx context.Context, id string) error {
	return s.deleteByID(ctx, s.tables.AdminOrders, id)
}

// UpdateAdminOrderState rewrites the full row. Cooldown transitions touch
// counters, status and timestamps together, so a field-level update
// expression buys nothing.
func (s *Store) UpdateAdminOrderState(ctx context.Context, o *market.AdminOrder) error {
	return s.PutAdminOrder(ctx, o)
}

// LoadCategories scans the categories table.
func (s *Store) LoadCategories(ctx context.Context) ([]*market.Category, error) {
	var out []*market.Category
	err := s.scan(ctx, s.tables.Categories, func(item map[string]types.AttributeValue) error {
		var r categoryRecord
		if err := attributevalue.UnmarshalMap(item, &r); err != nil {
			return fmt.Errorf("unmarshal category: %w", err)
		}
		out = append(out, r.toCategory())
		return nil
	})
	return out, err
}

// PutCategory writes a single category.
func (s *Store) PutCategory(ctx context.Context, c *market.Category) error {
	item, err := attributevalue.MarshalMap(recordFromCategory(c))
	if err != nil {
		return fmt.Errorf("marshal category %s: %w", c.ID, err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tables.Categories,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put category %s: %w", c.ID, err)
	}
	return nil
}

// DeleteCategory removes a category row.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tables.Categories,
		Key: map[string]types.AttributeValue{
			"category_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}

// LoadStats scans the statistics table.
func (s *Store) LoadStats(ctx context.Context) ([]*market.PlayerStats, error) {
	var out []*market.PlayerStats
	err := s.scan(ctx, s.tables.Stats, func(item map[string]types.AttributeValue) error {
		var r statsRecord
		if err := attributevalue.UnmarshalMap(item, &r); err != nil {
			return fmt.Errorf("unmarshal stats: %w", err)
		}
		out = append(out, r.toStats())
		return nil
	})
	return out, err
}

// SaveStats writes every aggregate in one batched pass.
func (s *Store) SaveStats(ctx context.Context, stats []*market.PlayerStats) error {
	items := make([]map[string]types.AttributeValue, 0, len(stats))
	for _, st := range stats {
		item, err := attributevalue.MarshalMap(recordFromStats(st))
		if err != nil {
			return fmt.Errorf("marshal stats %s: %w", st.PlayerID, err)
		}
		items = append(items, item)
	}
	return s.batchPut(ctx, s.tables.Stats, items)
}

// scan walks a table page by page, calling fn for each item.
func (s *Store) scan(ctx context.Context, table string, fn func(map[string]types.AttributeValue) error) error {
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &table,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
		for _, item := range out.Items {
			if err := fn(item); err != nil {
				return err
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// batchPut writes items in chunks of the BatchWriteItem limit, retrying
// unprocessed items once per chunk before giving up.
func (s *Store) batchPut(ctx context.Context, table string, items []map[string]types.AttributeValue) error {
	for len(items) > 0 {
		n := len(items)
		if n > batchWriteChunk {
			n = batchWriteChunk
		}
		chunk, rest := items[:n], items[n:]

		reqs := make([]types.WriteRequest, 0, len(chunk))
		for _, item := range chunk {
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}
		pending := map[string][]types.WriteRequest{table: reqs}
		for attempt := 0; attempt < 2 && len(pending[table]) > 0; attempt++ {
			out, err := s.client.BatchWriteItem(ctx, &dyn.BatchWriteItemInput{
				RequestItems: pending,
			})
			if err != nil {
				return fmt.Errorf("batch write %s: %w", table, err)
			}
			pending = out.UnprocessedItems
		}
		if len(pending[table]) > 0 {
			return fmt.Errorf("batch write %s: %d unprocessed items", table, len(pending[table]))
		}
		items = rest
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &table,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

func awsString(s string) *string { return &s }
