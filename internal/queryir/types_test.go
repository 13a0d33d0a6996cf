package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trackstore/internal/schema"
)

func TestStatement_SealedSwitch(t *testing.T) {
	stmts := []Statement{
		Select{Table: schema.Tracks},
		Insert{Table: schema.Tracks},
		Update{Table: schema.Tracks},
		Delete{Table: schema.Tracks},
	}

	for _, s := range stmts {
		switch s.(type) {
		case Select, Insert, Update, Delete:
			// Expected
		default:
			t.Fatalf("unexpected statement type %T", s)
		}
	}
}

func TestConjoin(t *testing.T) {
	a := IDEquals(schema.ColID, 1)
	b := IsNull{Column: schema.ColName}

	assert.Nil(t, Conjoin())
	assert.Nil(t, Conjoin(nil, nil))
	assert.Equal(t, a, Conjoin(nil, a))

	got := Conjoin(a, nil, b)
	and, ok := got.(And)
	require.True(t, ok)
	assert.Equal(t, []Predicate{a, b}, and.Predicates)
}

func TestIDEquals(t *testing.T) {
	p := IDEquals(schema.ColID, 42)
	assert.Equal(t, Compare{Column: schema.ColID, Op: OpEq, Operand: Value{V: int64(42)}}, p)
}

func TestIDIn(t *testing.T) {
	assert.Equal(t, IDEquals(schema.ColTrackID, 3), IDIn(schema.ColTrackID, []int64{3}))

	p := IDIn(schema.ColTrackID, []int64{3, 4})
	assert.Equal(t, In{
		Column:   schema.ColTrackID,
		Operands: []Operand{Value{V: int64(3)}, Value{V: int64(4)}},
	}, p)
}
