package schema

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/invopop/jsonschema"
	"time"
)

const (
	TransactionTable    = "Transaction"
	CourseTable         = "Course"
	CourseProgressTable = "CourseProgress"
)

//////// Transaction /////////

type Transaction struct {
	ID        string    `dynamodbav:"id" json:"id"` // UUID string
	UserID    string    `dynamodbav:"userId" json:"userId"`
	CourseID  string    `dynamodbav:"courseId" json:"courseId"`
	Amount    float64   `dynamodbav:"amount" json:"amount"`
	Currency  string    `dynamodbav:"currency" json:"currency"`
	Status    string    `dynamodbav:"status" json:"status"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt"` // stored as RFC3339 string
}

//////// Course /////////

type Lesson struct {
	ID       string `dynamodbav:"id" json:"id"`
	Title    string `dynamodbav:"title" json:"title"`
	Duration int    `dynamodbav:"duration" json:"duration"` // in minutes
}

type Course struct {
	ID          string    `dynamodbav:"id" json:"id"` // UUID string
	Title       string    `dynamodbav:"title" json:"title"`
	Description string    `dynamodbav:"description" json:"description"`
	Instructor  string    `dynamodbav:"instructor" json:"instructor"`
	Price       float64   `dynamodbav:"price" json:"price"`
	Tags        []string  `dynamodbav:"tags" json:"tags"`
	Lessons     []Lesson  `dynamodbav:"lessons" json:"lessons"`
	CreatedAt   time.Time `dynamodbav:"createdAt" json:"createdAt"`
}

//////// CourseProgress /////////

type CourseProgress struct {
	UserID           string    `dynamodbav:"userId" json:"userId"`
	CourseID         string    `dynamodbav:"courseId" json:"courseId"`
	CompletedLessons []string  `dynamodbav:"completedLessons" json:"completedLessons"`
	Percent          float64   `dynamodbav:"percent" json:"percent"`
	UpdatedAt        time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// KeyDef is a key attribute of a table or index.
type KeyDef struct {
	Name string
	Kind types.ScalarAttributeType
}

type GSI struct {
	Name         string
	PartitionKey KeyDef
	SortKey      *KeyDef
}

// Table describes one entity's physical table: key schema, indexes, the
// provisioned throughput hint and the record shape.
type Table struct {
	Name          string
	PartitionKey  KeyDef
	SortKey       *KeyDef
	GSIs          []GSI
	ReadCapacity  int64
	WriteCapacity int64
	// GenerateID fills a missing partition key with a random UUID before insert.
	GenerateID bool
	Shape      any
}

// Tables returns the fixed set of entity tables, in creation order, with the
// given throughput hint applied to each table and index.
func Tables(read, write int64) []Table {
	tables := []Table{
		{
			Name:         TransactionTable,
			PartitionKey: KeyDef{Name: "id", Kind: types.ScalarAttributeTypeS},
			GSIs: []GSI{
				{Name: "UserIndex", PartitionKey: KeyDef{Name: "userId", Kind: types.ScalarAttributeTypeS}},
			},
			GenerateID: true,
			Shape:      Transaction{},
		},
		{
			Name:         CourseTable,
			PartitionKey: KeyDef{Name: "id", Kind: types.ScalarAttributeTypeS},
			GenerateID:   true,
			Shape:        Course{},
		},
		{
			Name:         CourseProgressTable,
			PartitionKey: KeyDef{Name: "userId", Kind: types.ScalarAttributeTypeS},
			SortKey:      &KeyDef{Name: "courseId", Kind: types.ScalarAttributeTypeS},
			GSIs: []GSI{
				{Name: "CourseIndex", PartitionKey: KeyDef{Name: "courseId", Kind: types.ScalarAttributeTypeS}},
			},
			Shape: CourseProgress{},
		},
	}
	for i := range tables {
		tables[i].ReadCapacity = read
		tables[i].WriteCapacity = write
	}
	return tables
}

// Lookup finds a table by its exact name.
func Lookup(tables []Table, name string) (Table, bool) {
	for _, t := range tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// AttributeDefinitions lists every key attribute used by the table and its
// indexes, once each.
func (t Table) AttributeDefinitions() []types.AttributeDefinition {
	seen := map[string]bool{}
	var defs []types.AttributeDefinition
	add := func(k *KeyDef) {
		if k == nil || seen[k.Name] {
			return
		}
		seen[k.Name] = true
		name := k.Name
		defs = append(defs, types.AttributeDefinition{AttributeName: &name, AttributeType: k.Kind})
	}
	add(&t.PartitionKey)
	add(t.SortKey)
	for _, g := range t.GSIs {
		add(&g.PartitionKey)
		add(g.SortKey)
	}
	return defs
}

func keySchema(pk KeyDef, sk *KeyDef) []types.KeySchemaElement {
	pkName := pk.Name
	elems := []types.KeySchemaElement{{AttributeName: &pkName, KeyType: types.KeyTypeHash}}
	if sk != nil {
		skName := sk.Name
		elems = append(elems, types.KeySchemaElement{AttributeName: &skName, KeyType: types.KeyTypeRange})
	}
	return elems
}

// HasIndex reports whether the table declares a GSI with the given name.
func (t Table) HasIndex(name string) bool {
	for _, g := range t.GSIs {
		if g.Name == name {
			return true
		}
	}
	return false
}

func (t Table) KeySchema() []types.KeySchemaElement {
	return keySchema(t.PartitionKey, t.SortKey)
}

func (t Table) Throughput() *types.ProvisionedThroughput {
	read, write := t.ReadCapacity, t.WriteCapacity
	return &types.ProvisionedThroughput{ReadCapacityUnits: &read, WriteCapacityUnits: &write}
}

// GlobalSecondaryIndexes projects all attributes and shares the table's
// throughput hint.
func (t Table) GlobalSecondaryIndexes() []types.GlobalSecondaryIndex {
	if len(t.GSIs) == 0 {
		return nil
	}
	out := make([]types.GlobalSecondaryIndex, 0, len(t.GSIs))
	for _, g := range t.GSIs {
		name := g.Name
		out = append(out, types.GlobalSecondaryIndex{
			IndexName:             &name,
			KeySchema:             keySchema(g.PartitionKey, g.SortKey),
			Projection:            &types.Projection{ProjectionType: types.ProjectionTypeAll},
			ProvisionedThroughput: t.Throughput(),
		})
	}
	return out
}

// JSONSchema reflects the record shape into a JSON Schema document.
func (t Table) JSONSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return reflector.Reflect(t.Shape)
}
