package db

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/jsphweid/midigen/config"
	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/vocab"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("vocabulary not found")

// NewClient builds a DynamoDB client, pointed at cfg.DynamoEndpoint when
// one is set (dynamodb-local for development).
func NewClient(cfg config.Config) (dynamodbiface.DynamoDBAPI, error) {
	awsCfg := &aws.Config{}
	if cfg.DynamoRegion != "" {
		awsCfg.Region = aws.String(cfg.DynamoRegion)
	}
	if cfg.DynamoEndpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.DynamoEndpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not create a new DynamoDB session")
	}
	return dynamodb.New(sess), nil
}

// VocabularyStore keeps vocabularies as single items keyed by name.
type VocabularyStore struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

func NewVocabularyStore(client dynamodbiface.DynamoDBAPI, table string) *VocabularyStore {
	return &VocabularyStore{client: client, table: table}
}

func (s *VocabularyStore) Put(ctx context.Context, name string, v *vocab.Vocabulary) error {
	tokens := v.Tokens()
	list := make([]*dynamodb.AttributeValue, 0, len(tokens))
	for _, t := range tokens {
		list = append(list, &dynamodb.AttributeValue{S: aws.String(t)})
	}
	_, err := s.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]*dynamodb.AttributeValue{
			"PK":     {S: aws.String(name)},
			"Tokens": {L: list},
			"Size":   {N: aws.String(strconv.Itoa(len(tokens)))},
		},
	})
	return errors.Wrap(err, "error from DynamoDB")
}

func (s *VocabularyStore) Get(ctx context.Context, name string) (*vocab.Vocabulary, error) {
	out, err := s.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]*dynamodb.AttributeValue{
			"PK": {S: aws.String(name)},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "error from DynamoDB")
	}
	if len(out.Item) == 0 {
		return nil, errors.Wrap(ErrNotFound, name)
	}

	list, ok := out.Item["Tokens"]
	if !ok || list == nil || list.L == nil {
		return nil, errors.Errorf("vocabulary %s has no Tokens list", name)
	}
	var tokens []model.Token
	for i, av := range list.L {
		if av == nil || av.S == nil {
			return nil, errors.Errorf("vocabulary %s: token %d is not a string", name, i)
		}
		tokens = append(tokens, *av.S)
	}
	if size := out.Item["Size"]; size != nil && size.N != nil {
		n, err := strconv.Atoi(*size.N)
		if err != nil || n != len(tokens) {
			return nil, errors.Errorf("vocabulary %s: size %s does not match %d tokens", name, *size.N, len(tokens))
		}
	}
	return vocab.Load(tokens)
}
