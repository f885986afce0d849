/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/datastore/testmodels"
	sferrors "github.com/suparena/storeflow/errors"
	"github.com/suparena/storeflow/registry"
	"github.com/suparena/storeflow/storagemodels"
)

// fakeTable is an in-memory table keyed by PK and SK.
type fakeTable struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pageSize int
	// unprocessed is the number of writes to bounce on the next call
	unprocessed int
	batches     []int
	failWrite   error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: map[string]map[string]types.AttributeValue{}, pageSize: 10}
}

func itemKey(item map[string]types.AttributeValue) string {
	return keyString(map[string]types.AttributeValue{"PK": item["PK"], "SK": item["SK"]})
}

func (f *fakeTable) BatchWriteItem(_ context.Context, in *sdk.BatchWriteItemInput, _ ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != nil {
		return nil, f.failWrite
	}

	out := &sdk.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for table, writes := range in.RequestItems {
		if len(writes) > maxBatchWrite {
			return nil, fmt.Errorf("too many writes: %d", len(writes))
		}
		f.batches = append(f.batches, len(writes))
		seen := map[string]bool{}
		for _, w := range writes {
			var k string
			if w.PutRequest != nil {
				k = itemKey(w.PutRequest.Item)
			} else {
				k = itemKey(w.DeleteRequest.Key)
			}
			if seen[k] {
				return nil, errors.New("provided list of item keys contains duplicates")
			}
			seen[k] = true
		}
		for _, w := range writes {
			if f.unprocessed > 0 {
				f.unprocessed--
				out.UnprocessedItems[table] = append(out.UnprocessedItems[table], w)
				continue
			}
			if w.PutRequest != nil {
				f.items[itemKey(w.PutRequest.Item)] = w.PutRequest.Item
			} else {
				delete(f.items, itemKey(w.DeleteRequest.Key))
			}
		}
	}
	return out, nil
}

func (f *fakeTable) Scan(_ context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.items))
	for k, item := range f.items {
		if _, ok := item[in.ExpressionAttributeNames["#o"]]; ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	if in.ExclusiveStartKey != nil {
		start := itemKey(in.ExclusiveStartKey)
		i, _ := slices.BinarySearch(keys, start)
		if i < len(keys) && keys[i] == start {
			i++
		}
		keys = keys[i:]
	}

	out := &sdk.ScanOutput{}
	for _, k := range keys {
		if len(out.Items) == f.pageSize {
			last := out.Items[len(out.Items)-1]
			out.LastEvaluatedKey = map[string]types.AttributeValue{"PK": last["PK"], "SK": last["SK"]}
			break
		}
		item := f.items[k]
		if in.ProjectionExpression != nil {
			projected := map[string]types.AttributeValue{}
			for _, p := range strings.Split(*in.ProjectionExpression, ", ") {
				attr := in.ExpressionAttributeNames[p]
				projected[attr] = item[attr]
			}
			item = projected
		}
		out.Items = append(out.Items, item)
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (f *fakeTable) put(item map[string]types.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[itemKey(item)] = item
}

func newPersister(t *testing.T, table *fakeTable, opts ...Option) *Persister {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.RegisterValue(testmodels.RatingSystem{}, testmodels.IndexMap))
	opts = append([]Option{
		WithRegistry(reg),
		WithRetries(3, time.Millisecond),
		WithLogger(zaptest.NewLogger(t).Sugar()),
	}, opts...)
	p, err := New(table, "records", opts...)
	require.NoError(t, err)
	return p
}

func ratingRecords(n int) []*storagemodels.Record {
	out := make([]*storagemodels.Record, 0, n)
	for _, v := range testmodels.Generate(n) {
		out = append(out, storagemodels.FromPureValue(v))
	}
	return out
}

func TestExpandMacros(t *testing.T) {
	tests := []struct {
		name     string
		indexMap map[string]string
		input    map[string]any
		want     map[string]string
		wantErr  string
	}{
		{
			name:     "field and static parts",
			indexMap: map[string]string{"PK": "USER#{ID}", "SK": "PROFILE"},
			input:    map[string]any{"ID": "123"},
			want:     map[string]string{"PK": "USER#123", "SK": "PROFILE"},
		},
		{
			name:     "numbers and bools",
			indexMap: map[string]string{"GSI1PK": "{Score}#{Active}"},
			input:    map[string]any{"Score": 42, "Active": true},
			want:     map[string]string{"GSI1PK": "42#true"},
		},
		{
			name:     "missing macro",
			indexMap: map[string]string{"PK": "USER#{ID}"},
			input:    map[string]any{"Name": "x"},
			wantErr:  "no value for ID",
		},
		{
			name:     "list does not render",
			indexMap: map[string]string{"PK": "{Tags}"},
			input:    map[string]any{"Tags": []string{"a"}},
			wantErr:  "no value for Tags",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandMacros(tt.indexMap, tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, "records")
	assert.True(t, sferrors.IsConfiguration(err))

	_, err = New(newFakeTable(), "")
	assert.True(t, sferrors.IsConfiguration(err))
}

func TestFlushAndLoad(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	p := newPersister(t, table)

	rs := ratingRecords(30)
	require.NoError(t, p.Flush(ctx, datastore.ChangeSet{Inserted: rs}))
	assert.Equal(t, []int{25, 5}, table.batches)

	item := table.items[itemKey(map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "RATINGSYSTEM#rs-3"},
		"SK": &types.AttributeValueMemberS{Value: rs[3].ObjectID()},
	})]
	require.NotNil(t, item)
	assert.Equal(t, &types.AttributeValueMemberS{Value: testmodels.Entity}, item[attrEntity])

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 30)

	values, err := storagemodels.DecodeAll[testmodels.RatingSystem](loaded)
	require.NoError(t, err)
	scores := map[string]int64{}
	for _, v := range values {
		scores[testmodels.ID(v)] = v.Score
		require.NotNil(t, v.CreatedAt)
	}
	assert.Equal(t, int64(3), scores["rs-3"])
	assert.Equal(t, int64(29), scores["rs-29"])

	score, ok := loaded[0].Field("Score")
	require.True(t, ok)
	assert.IsType(t, int64(0), score)
}

func TestFlushDeletes(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	p := newPersister(t, table)

	rs := ratingRecords(4)
	require.NoError(t, p.Flush(ctx, datastore.ChangeSet{Inserted: rs}))
	require.NoError(t, p.Flush(ctx, datastore.ChangeSet{Deleted: rs[:2]}))

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	ids := []string{loaded[0].ObjectID(), loaded[1].ObjectID()}
	assert.ElementsMatch(t, []string{rs[2].ObjectID(), rs[3].ObjectID()}, ids)
}

func TestFlushCollapsesPutAndDeleteOfOneKey(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	p := newPersister(t, table)

	r := ratingRecords(1)[0]
	require.NoError(t, p.Flush(ctx, datastore.ChangeSet{Inserted: []*storagemodels.Record{r}, Deleted: []*storagemodels.Record{r, r}}))
	assert.Equal(t, []int{1}, table.batches)
	assert.Len(t, table.items, 1)
}

func TestFlushResendsUnprocessedItems(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	table.unprocessed = 3
	p := newPersister(t, table)

	require.NoError(t, p.Flush(ctx, datastore.ChangeSet{Inserted: ratingRecords(5)}))
	assert.Equal(t, []int{5, 3}, table.batches)
	assert.Len(t, table.items, 5)
}

func TestFlushGivesUpAfterRetries(t *testing.T) {
	table := newFakeTable()
	table.failWrite = errors.New("throttled")
	p := newPersister(t, table)

	err := p.Flush(context.Background(), datastore.ChangeSet{Inserted: ratingRecords(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestFlushRejectsUnexpandableKeys(t *testing.T) {
	table := newFakeTable()
	p := newPersister(t, table)

	// RatingSystem keys need an Id
	r := storagemodels.NewRecord(testmodels.Entity, "Id", map[string]any{"Name": "anonymous"})
	err := p.Flush(context.Background(), datastore.ChangeSet{Inserted: []*storagemodels.Record{r}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no value for Id")
	assert.Empty(t, table.batches)
}

func TestDefaultIndexMap(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	p := newPersister(t, table)

	r := storagemodels.NewRecord("Note", "id", map[string]any{"id": "n1", "body": "hello", "weight": 1.5})
	require.NoError(t, p.Flush(ctx, datastore.ChangeSet{Inserted: []*storagemodels.Record{r}}))

	item := table.items[itemKey(map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "Note"},
		"SK": &types.AttributeValueMemberS{Value: r.ObjectID()},
	})]
	require.NotNil(t, item)

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "hello", loaded[0].Text("body"))
	weight, err := loaded[0].Float64("weight")
	require.NoError(t, err)
	assert.Equal(t, 1.5, weight)
}

func TestClearKeepsForeignItems(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	table.pageSize = 4
	p := newPersister(t, table)

	require.NoError(t, p.Flush(ctx, datastore.ChangeSet{Inserted: ratingRecords(9)}))
	table.put(map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "CONFIG"},
		"SK": &types.AttributeValueMemberS{Value: "global"},
	})

	require.NoError(t, p.Clear(ctx))
	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.Len(t, table.items, 1)
}
