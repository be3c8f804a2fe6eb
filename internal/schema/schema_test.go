package schema

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestTablesAreTheThreeEntities(t *testing.T) {
	tables := Tables(5, 7)
	require.Len(t, tables, 3)

	var names []string
	for _, tbl := range tables {
		names = append(names, tbl.Name)
		assert.Equal(t, int64(5), tbl.ReadCapacity)
		assert.Equal(t, int64(7), tbl.WriteCapacity)
	}
	assert.Equal(t, []string{TransactionTable, CourseTable, CourseProgressTable}, names)
}

func TestCourseProgressKeySchema(t *testing.T) {
	tbl, ok := Lookup(Tables(1, 1), CourseProgressTable)
	require.True(t, ok)

	ks := tbl.KeySchema()
	require.Len(t, ks, 2)
	assert.Equal(t, "userId", aws.ToString(ks[0].AttributeName))
	assert.Equal(t, types.KeyTypeHash, ks[0].KeyType)
	assert.Equal(t, "courseId", aws.ToString(ks[1].AttributeName))
	assert.Equal(t, types.KeyTypeRange, ks[1].KeyType)

	// courseId is both the sort key and the GSI key; defined once.
	defs := tbl.AttributeDefinitions()
	require.Len(t, defs, 2)

	gsis := tbl.GlobalSecondaryIndexes()
	require.Len(t, gsis, 1)
	assert.Equal(t, "CourseIndex", aws.ToString(gsis[0].IndexName))
	assert.Equal(t, int64(1), aws.ToInt64(gsis[0].ProvisionedThroughput.ReadCapacityUnits))
}

func TestCourseHasNoIndexes(t *testing.T) {
	tbl, ok := Lookup(Tables(1, 1), CourseTable)
	require.True(t, ok)
	assert.Nil(t, tbl.GlobalSecondaryIndexes())
	assert.True(t, tbl.GenerateID)
	assert.Len(t, tbl.KeySchema(), 1)
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup(Tables(1, 1), "Leftover")
	assert.False(t, ok)
}

func TestJSONSchemaHasRecordFields(t *testing.T) {
	tbl, _ := Lookup(Tables(1, 1), CourseTable)
	s := tbl.JSONSchema()
	require.NotNil(t, s)
	require.NotNil(t, s.Properties)
	_, ok := s.Properties.Get("title")
	assert.True(t, ok)
	_, ok = s.Properties.Get("lessons")
	assert.True(t, ok)
}

func TestTableForFixture(t *testing.T) {
	cases := []struct {
		base  string
		table string
		known bool
	}{
		{"courses", CourseTable, true},
		{"Course", CourseTable, true},
		{"COURSES", CourseTable, true},
		{"transactions", TransactionTable, true},
		{"transaction", TransactionTable, true},
		{"courseProgress", CourseProgressTable, true},
		{"course-progress", CourseProgressTable, true},
		{"course_progresses", CourseProgressTable, true},
		{"courses-progress", CourseProgressTable, true},
		{"widgets", "Widgets", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.base, func(t *testing.T) {
			table, known := TableForFixture(tc.base)
			assert.Equal(t, tc.table, table)
			assert.Equal(t, tc.known, known)
		})
	}
}
