package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDB captures queries sent through the Database interface
type recordingDB struct {
	queries []string
	vars    []map[string]interface{}
	err     error
}

func (r *recordingDB) Connect(ctx context.Context) error { return nil }
func (r *recordingDB) Close() error                      { return nil }
func (r *recordingDB) Ping(ctx context.Context) error    { return nil }

func (r *recordingDB) Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
	r.queries = append(r.queries, query)
	r.vars = append(r.vars, vars)
	return nil, r.err
}

func (r *recordingDB) QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error) {
	_, err := r.Query(ctx, query, vars)
	return nil, err
}

func (r *recordingDB) Execute(ctx context.Context, query string, vars map[string]interface{}) error {
	_, err := r.Query(ctx, query, vars)
	return err
}

func TestTxBuilder_NamespacesVariables(t *testing.T) {
	t.Parallel()

	tb := NewTxBuilder()
	m1 := tb.Add("UPDATE type::thing('donor', $id) SET total_points = $points", map[string]interface{}{"id": "a", "points": 10})
	m2 := tb.Add("UPDATE type::thing('donor', $id) SET total_points = $points", map[string]interface{}{"id": "b", "points": 20})

	query, vars := tb.Build()

	assert.True(t, strings.HasPrefix(query, "BEGIN TRANSACTION;"))
	assert.True(t, strings.HasSuffix(query, "COMMIT TRANSACTION;"))
	assert.NotEqual(t, m1["id"], m2["id"])
	assert.Equal(t, "a", vars[m1["id"]])
	assert.Equal(t, "b", vars[m2["id"]])
	assert.Equal(t, 20, vars[m2["points"]])
	assert.Equal(t, 2, tb.Len())
}

func TestTxBuilder_PrefixVariablesDoNotCollide(t *testing.T) {
	t.Parallel()

	tb := NewTxBuilder()
	mapping := tb.Add("SELECT * FROM donation WHERE user = $user AND user_id = $user_id", map[string]interface{}{
		"user":    "x",
		"user_id": "y",
	})

	query, vars := tb.Build()

	assert.Contains(t, query, "$"+mapping["user"]+" AND")
	assert.Contains(t, query, "$"+mapping["user_id"])
	assert.Equal(t, "x", vars[mapping["user"]])
	assert.Equal(t, "y", vars[mapping["user_id"]])
}

func TestTxBuilder_EmptyBuild(t *testing.T) {
	t.Parallel()

	query, vars := NewTxBuilder().Build()
	assert.Empty(t, query)
	assert.Nil(t, vars)

	n, err := ExecuteTransaction(context.Background(), &recordingDB{}, NewTxBuilder())
	assert.NoError(t, err)
	assert.Nil(t, n)
}

func TestExecuteTransaction_SendsOneBatch(t *testing.T) {
	t.Parallel()

	db := &recordingDB{}
	tb := NewTxBuilder()
	tb.Add("CREATE type::thing('donation', $id) CONTENT $data", map[string]interface{}{"id": "d1", "data": map[string]interface{}{"quantity": 2}})
	tb.Add("UPDATE type::thing('donor', $id) SET total_points = $points", map[string]interface{}{"id": "u1", "points": 100})

	_, err := ExecuteTransaction(context.Background(), db, tb)
	require.NoError(t, err)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "CREATE type::thing('donation'")
	assert.Contains(t, db.queries[0], "UPDATE type::thing('donor'")
	assert.Len(t, db.vars[0], 4)
}

func TestExecuteTransaction_FreshBuilderAfterDiscard(t *testing.T) {
	t.Parallel()

	db := &recordingDB{}

	// a discarded builder is never sent
	discarded := NewTxBuilder()
	discarded.Add("CREATE a", nil)

	tb := NewTxBuilder()
	tb.Add("CREATE b", nil)
	_, err := ExecuteTransaction(context.Background(), db, tb)
	require.NoError(t, err)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "CREATE b")
	assert.NotContains(t, db.queries[0], "CREATE a")
}

func TestExecuteTransaction_PropagatesConflict(t *testing.T) {
	t.Parallel()

	db := &recordingDB{err: ErrConflict}
	tb := NewTxBuilder()
	tb.Add("THROW 'version_conflict'", nil)

	_, err := ExecuteTransaction(context.Background(), db, tb)
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestClassifyQueryError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrConflict, classifyQueryError("An error occurred: version_conflict"))
	assert.Equal(t, ErrConflict, classifyQueryError("Transaction conflict: Resource busy. This transaction can be retried"))
	assert.Equal(t, ErrDuplicate, classifyQueryError("Database record `donor:a` already exists"))
	assert.Equal(t, ErrQuery, classifyQueryError("Parse error"))
}

func TestFirstRecordAndStatementRecords(t *testing.T) {
	t.Parallel()

	results := []interface{}{
		map[string]interface{}{"status": "OK", "result": []interface{}{map[string]interface{}{"id": "a"}}},
		map[string]interface{}{"status": "OK", "result": []interface{}{}},
		map[string]interface{}{"status": "OK", "result": 42},
	}

	rec, err := FirstRecord(results)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"id": "a"}, rec)

	_, err = FirstRecord(results[1:2])
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = FirstRecord(nil)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, StatementRecords(results, 0), 1)
	assert.Empty(t, StatementRecords(results, 1))
	assert.Equal(t, []interface{}{42}, StatementRecords(results, 2))
	assert.Nil(t, StatementRecords(results, 9))
}
