package db

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/vocab"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI
	items map[string]map[string]*dynamodb.AttributeValue
}

func (f *fakeDynamo) PutItemWithContext(_ aws.Context, in *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	f.items[*in.TableName+"/"+*in.Item["PK"].S] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItemWithContext(_ aws.Context, in *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[*in.TableName+"/"+*in.Key["PK"].S]}, nil
}

func newFake() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]*dynamodb.AttributeValue)}
}

func TestPutThenGet(t *testing.T) {
	store := NewVocabularyStore(newFake(), "midigen-vocab")
	v, err := vocab.Build([]model.Token{"E4", "C4", "0.4.7", "C4"})
	assert := assert.New(t)
	assert.NoError(err)

	ctx := context.Background()
	assert.NoError(store.Put(ctx, "bach", v))
	back, err := store.Get(ctx, "bach")
	assert.NoError(err)
	assert.Equal(v.Tokens(), back.Tokens())
}

func TestGetMissing(t *testing.T) {
	store := NewVocabularyStore(newFake(), "midigen-vocab")
	_, err := store.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetRejectsDuplicates(t *testing.T) {
	fake := newFake()
	fake.items["t/dup"] = map[string]*dynamodb.AttributeValue{
		"PK":     {S: aws.String("dup")},
		"Tokens": {L: []*dynamodb.AttributeValue{{S: aws.String("C4")}, {S: aws.String("C4")}}},
	}
	_, err := NewVocabularyStore(fake, "t").Get(context.Background(), "dup")
	assert.True(t, errors.Is(err, vocab.ErrDuplicateToken))
}

func TestGetRejectsSizeMismatch(t *testing.T) {
	fake := newFake()
	fake.items["t/x"] = map[string]*dynamodb.AttributeValue{
		"PK":     {S: aws.String("x")},
		"Tokens": {L: []*dynamodb.AttributeValue{{S: aws.String("C4")}}},
		"Size":   {N: aws.String("2")},
	}
	_, err := NewVocabularyStore(fake, "t").Get(context.Background(), "x")
	assert.Error(t, err)
}

func TestGetWithoutTokens(t *testing.T) {
	fake := newFake()
	fake.items["t/v1"] = map[string]*dynamodb.AttributeValue{
		"PK": {S: aws.String("v1")},
	}
	store := NewVocabularyStore(fake, "t")
	assert := assert.New(t)
	assert.NotPanics(func() {
		_, err := store.Get(context.Background(), "v1")
		assert.Error(err)
	})

	fake.items["t/v2"] = map[string]*dynamodb.AttributeValue{
		"PK":     {S: aws.String("v2")},
		"Tokens": {S: aws.String("C4")},
	}
	_, err := store.Get(context.Background(), "v2")
	assert.Error(err)
}
