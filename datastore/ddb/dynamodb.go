/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/errors"
	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/registry"
	"github.com/suparena/storeflow/retry"
	"github.com/suparena/storeflow/storagemodels"
)

// Reserved item attributes.
const (
	attrObjectID   = "_objectId"
	attrEntity     = "_entity"
	attrPrimaryKey = "_primaryKey"
	attrFields     = "fields"
)

// maxBatchWrite is the BatchWriteItem request limit.
const maxBatchWrite = 25

// API is the part of the DynamoDB client the persister uses.
type API interface {
	sdk.ScanAPIClient
	BatchWriteItem(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error)
}

// ClientConfig holds what is needed to reach a table.
type ClientConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
}

// NewClient initializes a DynamoDB client. Static credentials are used when
// both keys are set, otherwise the default credential chain applies.
func NewClient(ctx context.Context, cc ClientConfig) (*sdk.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cc.Region)}
	if cc.AccessKey != "" && cc.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cc.AccessKey, cc.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if cc.Endpoint != "" {
			o.BaseEndpoint = aws.String(cc.Endpoint)
		}
	}), nil
}

// Persister keeps records as items of a single table. Item keys come from
// the entity's index map in the registry, or DefaultIndexMap.
type Persister struct {
	client   API
	table    string
	registry *registry.Registry
	keyAttrs []string
	attempts int
	backoff  time.Duration
	logger   *zap.SugaredLogger
}

var _ datastore.Persister = (*Persister)(nil)

// Option configures a Persister.
type Option func(*Persister)

// WithRegistry resolves index maps through reg.
func WithRegistry(reg *registry.Registry) Option {
	return func(p *Persister) {
		p.registry = reg
	}
}

// WithKeyAttributes names the table's key attributes. Defaults to PK and SK.
func WithKeyAttributes(attrs ...string) Option {
	return func(p *Persister) {
		if len(attrs) > 0 {
			p.keyAttrs = attrs
		}
	}
}

// WithRetries bounds the attempts made for one batch with unprocessed items.
func WithRetries(attempts int, backoff time.Duration) Option {
	return func(p *Persister) {
		p.attempts = attempts
		p.backoff = backoff
	}
}

// WithLogger sets the persister logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Persister) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a persister writing to table through client.
func New(client API, table string, opts ...Option) (*Persister, error) {
	if client == nil {
		return nil, errors.NewConfigurationError("dynamodb", "client")
	}
	if table == "" {
		return nil, errors.NewConfigurationError("dynamodb", "table")
	}
	p := &Persister{
		client:   client,
		table:    table,
		keyAttrs: []string{"PK", "SK"},
		attempts: 5,
		backoff:  100 * time.Millisecond,
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger.Debugw("DynamoDB persister initialized", "table", table)
	return p, nil
}

func (p *Persister) indexMap(entity string) map[string]string {
	if p.registry != nil {
		if m, err := p.registry.IndexMap(entity); err == nil {
			return m
		}
	}
	return DefaultIndexMap
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (p *Persister) Close() error { return nil }

// Load scans the table and returns every record item. Items written by
// other applications lack the reserved attributes and are skipped.
func (p *Persister) Load(ctx context.Context) ([]*storagemodels.Record, error) {
	var out []*storagemodels.Record
	err := p.scan(ctx, nil, func(item map[string]types.AttributeValue) error {
		r, err := recordFromItem(item)
		if err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

// Flush writes cs with BatchWriteItem, at most 25 writes per call. A put
// and a delete of the same key collapse into the put. Batches are not
// atomic with each other.
func (p *Persister) Flush(ctx context.Context, cs datastore.ChangeSet) error {
	writes := make([]types.WriteRequest, 0, len(cs.Inserted)+len(cs.Deleted))
	seen := make(map[string]struct{}, len(cs.Inserted)+len(cs.Deleted))

	for _, r := range cs.Inserted {
		item, key, err := p.itemOf(r)
		if err != nil {
			return err
		}
		seen[keyString(key)] = struct{}{}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	for _, r := range cs.Deleted {
		key, _, err := keyOf(p.indexMap(r.EntityName()), p.keyAttrs, r)
		if err != nil {
			return err
		}
		ks := keyString(key)
		if _, dup := seen[ks]; dup {
			continue
		}
		seen[ks] = struct{}{}
		writes = append(writes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
	}

	for _, batch := range predicate.Segment(writes, maxBatchWrite) {
		if err := p.batchWrite(ctx, batch); err != nil {
			return err
		}
	}
	p.logger.Debugw("flushed", "inserted", len(cs.Inserted), "deleted", len(cs.Deleted), "writes", len(writes))
	return nil
}

// Clear deletes every record item in the table.
func (p *Persister) Clear(ctx context.Context) error {
	var keys []types.WriteRequest
	err := p.scan(ctx, p.keyAttrs, func(item map[string]types.AttributeValue) error {
		key := make(map[string]types.AttributeValue, len(p.keyAttrs))
		for _, attr := range p.keyAttrs {
			key[attr] = item[attr]
		}
		keys = append(keys, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
		return nil
	})
	if err != nil {
		return err
	}
	for _, batch := range predicate.Segment(keys, maxBatchWrite) {
		if err := p.batchWrite(ctx, batch); err != nil {
			return err
		}
	}
	p.logger.Infow("table cleared", "table", p.table, "items", len(keys))
	return nil
}

// scan pages through every item carrying the object id attribute. A non-empty
// projection limits the attributes returned.
func (p *Persister) scan(ctx context.Context, projection []string, fn func(map[string]types.AttributeValue) error) error {
	names := map[string]string{"#o": attrObjectID}
	input := &sdk.ScanInput{
		TableName:        aws.String(p.table),
		FilterExpression: aws.String("attribute_exists(#o)"),
	}
	if len(projection) > 0 {
		placeholders := make([]string, len(projection))
		for i, attr := range projection {
			placeholders[i] = fmt.Sprintf("#k%d", i)
			names[placeholders[i]] = attr
		}
		input.ProjectionExpression = aws.String(strings.Join(placeholders, ", "))
	}
	input.ExpressionAttributeNames = names

	paginator := sdk.NewScanPaginator(p.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("scan %s: %w", p.table, err)
		}
		for _, item := range page.Items {
			if err := fn(item); err != nil {
				return err
			}
		}
	}
	return nil
}

// batchWrite sends one batch and resends unprocessed items until none are
// left or attempts run out.
func (p *Persister) batchWrite(ctx context.Context, batch []types.WriteRequest) error {
	pending := batch
	return retry.Do(ctx, p.attempts, func(ctx context.Context) error {
		out, err := p.client.BatchWriteItem(ctx, &sdk.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{p.table: pending},
		})
		if err != nil {
			return fmt.Errorf("BatchWriteItem failed: %w", err)
		}
		pending = out.UnprocessedItems[p.table]
		if len(pending) > 0 {
			return fmt.Errorf("BatchWriteItem left %d unprocessed writes", len(pending))
		}
		return nil
	},
		retry.WithBackoff(p.backoff),
		retry.OnRetry(func(attempt int, err error, next time.Duration) {
			p.logger.Warnw("retrying batch write", "attempt", attempt, "error", err, "next", next)
		}),
	)
}

// itemOf renders r as a table item: expanded index attributes, the reserved
// attributes and the field map.
func (p *Persister) itemOf(r *storagemodels.Record) (map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	key, expanded, err := keyOf(p.indexMap(r.EntityName()), p.keyAttrs, r)
	if err != nil {
		return nil, nil, err
	}
	fields, err := attributevalue.MarshalMap(r.RecordFields())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal %s: %w", r, err)
	}

	item := make(map[string]types.AttributeValue, len(expanded)+4)
	for attr, v := range expanded {
		item[attr] = &types.AttributeValueMemberS{Value: v}
	}
	item[attrObjectID] = &types.AttributeValueMemberS{Value: r.ObjectID()}
	item[attrEntity] = &types.AttributeValueMemberS{Value: r.EntityName()}
	item[attrPrimaryKey] = &types.AttributeValueMemberS{Value: r.PrimaryKey()}
	item[attrFields] = &types.AttributeValueMemberM{Value: fields}
	return item, key, nil
}

var fieldDecoder = attributevalue.NewDecoder(func(o *attributevalue.DecoderOptions) {
	o.UseNumber = true
})

func recordFromItem(item map[string]types.AttributeValue) (*storagemodels.Record, error) {
	text := func(attr string) (string, error) {
		s, ok := item[attr].(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("item attribute %s is not a string", attr)
		}
		return s.Value, nil
	}
	id, err := text(attrObjectID)
	if err != nil {
		return nil, err
	}
	entity, err := text(attrEntity)
	if err != nil {
		return nil, err
	}
	key, err := text(attrPrimaryKey)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if av, ok := item[attrFields]; ok {
		if err := fieldDecoder.Decode(av, &fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item %s: %w", id, err)
		}
	}
	// numbers come back as int64 when integral and float64 otherwise
	for k, v := range fields {
		n, ok := v.(attributevalue.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			fields[k] = i
		} else if f, err := n.Float64(); err == nil {
			fields[k] = f
		}
	}
	return storagemodels.RestoreRecord(id, entity, key, fields), nil
}
