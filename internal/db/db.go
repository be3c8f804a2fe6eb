package db

import (
	"context"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/coursedb/internal/schema"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"time"
)

// ErrTableNotFound is returned by DeleteTable when the table does not exist.
var ErrTableNotFound = errors.New("table not found")

// API is the part of *dynamodb.Client used by Db.
type API interface {
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type Db struct {
	dbClient      API
	logger        zerolog.Logger
	activeTimeout time.Duration
}

func NewDb(client API, activeTimeout time.Duration, logger zerolog.Logger) *Db {
	if activeTimeout <= 0 {
		activeTimeout = 5 * time.Minute
	}
	return &Db{dbClient: client, logger: logger, activeTimeout: activeTimeout}
}

// NewFromConfig builds a Db on a real DynamoDB client.
func NewFromConfig(cfg aws.Config, activeTimeout time.Duration, logger zerolog.Logger) *Db {
	return NewDb(dynamodb.NewFromConfig(cfg), activeTimeout, logger)
}

func isNotFound(err error) bool {
	var rnf *types.ResourceNotFoundException
	return errors.As(err, &rnf)
}

func (obj *Db) ListTableNames(ctx context.Context) ([]string, error) {
	var names []string
	paginator := dynamodb.NewListTablesPaginator(obj.dbClient, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ListTables: %w", err)
		}
		names = append(names, page.TableNames...)
	}
	return names, nil
}

func (obj *Db) DeleteTable(ctx context.Context, name string) error {
	_, err := obj.dbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(name)})
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("DeleteTable %q: %w", name, ErrTableNotFound)
	}
	return fmt.Errorf("DeleteTable %q: %w", name, err)
}

// CreateOrUpdateTable creates the table when it is absent, otherwise brings its
// provisioned throughput in line with the descriptor. A table that is still
// being deleted is waited out and then created. Either way it blocks until the
// table is ACTIVE. Returned errors carry a stack trace.
func (obj *Db) CreateOrUpdateTable(ctx context.Context, table schema.Table) error {
	desc, err := obj.describeSettled(ctx, table.Name)
	if err != nil {
		return err
	}
	if desc != nil {
		if err := obj.updateThroughput(ctx, table, desc); err != nil {
			return err
		}
	} else {
		input := &dynamodb.CreateTableInput{
			TableName:              aws.String(table.Name),
			AttributeDefinitions:   table.AttributeDefinitions(),
			KeySchema:              table.KeySchema(),
			GlobalSecondaryIndexes: table.GlobalSecondaryIndexes(),
			BillingMode:            types.BillingModeProvisioned,
			ProvisionedThroughput:  table.Throughput(),
		}
		obj.logger.Info().Msgf("Creating table %q ...", table.Name)
		if _, err := obj.dbClient.CreateTable(ctx, input); err != nil {
			return pkgerrors.Wrapf(err, "CreateTable %q", table.Name)
		}
	}

	// Wait for ACTIVE
	waiter := dynamodb.NewTableExistsWaiter(obj.dbClient)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table.Name)}, obj.activeTimeout); err != nil {
		return pkgerrors.Wrapf(err, "waiting for table %q ACTIVE", table.Name)
	}
	return nil
}

// describeSettled returns the table description, or nil when the table does
// not exist. DeleteTable is asynchronous, so a DELETING table is waited on
// until it is gone and reported as absent.
func (obj *Db) describeSettled(ctx context.Context, name string) (*types.TableDescription, error) {
	out, err := obj.dbClient.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	switch {
	case isNotFound(err):
		return nil, nil
	case err != nil:
		return nil, pkgerrors.Wrapf(err, "DescribeTable %q", name)
	}

	desc := out.Table
	if desc == nil {
		desc = &types.TableDescription{}
	}
	if desc.TableStatus != types.TableStatusDeleting {
		return desc, nil
	}

	obj.logger.Info().Msgf("Table %q is still being deleted, waiting ...", name)
	waiter := dynamodb.NewTableNotExistsWaiter(obj.dbClient)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, obj.activeTimeout); err != nil {
		return nil, pkgerrors.Wrapf(err, "waiting for table %q to be deleted", name)
	}
	return nil, nil
}

func throughputMatches(pt *types.ProvisionedThroughputDescription, read, write int64) bool {
	return pt != nil &&
		aws.ToInt64(pt.ReadCapacityUnits) == read &&
		aws.ToInt64(pt.WriteCapacityUnits) == write
}

// updateThroughput applies the capacity hint to the table and to each of its
// known indexes. Only the parts that differ are sent; DynamoDB rejects an
// update that changes nothing.
func (obj *Db) updateThroughput(ctx context.Context, table schema.Table, desc *types.TableDescription) error {
	input := &dynamodb.UpdateTableInput{TableName: aws.String(table.Name)}
	if !throughputMatches(desc.ProvisionedThroughput, table.ReadCapacity, table.WriteCapacity) {
		input.BillingMode = types.BillingModeProvisioned
		input.ProvisionedThroughput = table.Throughput()
	}
	for _, idx := range desc.GlobalSecondaryIndexes {
		name := aws.ToString(idx.IndexName)
		if !table.HasIndex(name) || throughputMatches(idx.ProvisionedThroughput, table.ReadCapacity, table.WriteCapacity) {
			continue
		}
		input.GlobalSecondaryIndexUpdates = append(input.GlobalSecondaryIndexUpdates, types.GlobalSecondaryIndexUpdate{
			Update: &types.UpdateGlobalSecondaryIndexAction{
				IndexName:             aws.String(name),
				ProvisionedThroughput: table.Throughput(),
			},
		})
	}

	if input.ProvisionedThroughput == nil && len(input.GlobalSecondaryIndexUpdates) == 0 {
		obj.logger.Info().Msgf("Table %q already exists with matching throughput.", table.Name)
		return nil
	}

	obj.logger.Info().Msgf("Updating table %q throughput to %d/%d (%d indexes) ...",
		table.Name, table.ReadCapacity, table.WriteCapacity, len(input.GlobalSecondaryIndexUpdates))
	if _, err := obj.dbClient.UpdateTable(ctx, input); err != nil {
		return pkgerrors.Wrapf(err, "UpdateTable %q", table.Name)
	}
	return nil
}

// PutRecord inserts a free-form record. The put is conditional on the
// partition key not existing yet, so a duplicate key fails instead of
// overwriting.
func (obj *Db) PutRecord(ctx context.Context, table schema.Table, record map[string]any) error {
	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(table.Name),
		Item:      av,
	}
	if table.PartitionKey.Name != "" {
		cond := expression.AttributeNotExists(expression.Name(table.PartitionKey.Name))
		expr, err := expression.NewBuilder().WithCondition(cond).Build()
		if err != nil {
			return fmt.Errorf("build condition: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
	}

	if _, err := obj.dbClient.PutItem(ctx, input); err != nil {
		return fmt.Errorf("PutItem %q: %w", table.Name, err)
	}
	return nil
}

func (obj *Db) CountItems(ctx context.Context, table string) (int64, error) {
	var total int64
	paginator := dynamodb.NewScanPaginator(obj.dbClient, &dynamodb.ScanInput{
		TableName: aws.String(table),
		Select:    types.SelectCount,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("Scan %q: %w", table, err)
		}
		total += int64(page.Count)
	}
	return total, nil
}
