package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("complete dialect passes", func(t *testing.T) {
		require.NoError(t, testDialect().Validate())
	})

	tests := []struct {
		name    string
		mutate  func(d *Dialect)
		wantMsg string
	}{
		{
			name:    "missing name",
			mutate:  func(d *Dialect) { d.Name = "" },
			wantMsg: "dialect name is required",
		},
		{
			name:    "missing eq token",
			mutate:  func(d *Dialect) { d.EqToken = "" },
			wantMsg: "equality token is required",
		},
		{
			name:    "missing connective token",
			mutate:  func(d *Dialect) { d.NotToken = "" },
			wantMsg: "all three boolean connective tokens are required",
		},
		{
			name:    "group template without placeholder",
			mutate:  func(d *Dialect) { d.GroupExpression = "()" },
			wantMsg: "grouping template must contain {expr}",
		},
		{
			name:    "duplicate precedence entry",
			mutate:  func(d *Dialect) { d.Precedence = [3]BoolOp{OpNot, OpNot, OpOr} },
			wantMsg: "connective NOT listed twice",
		},
		{
			name:    "incomplete precedence table",
			mutate:  func(d *Dialect) { d.Precedence = [3]BoolOp{OpNot, OpNot, OpOr} },
			wantMsg: "connective AND missing",
		},
		{
			name:    "match template without value placeholder",
			mutate:  func(d *Dialect) { d.StartsWithExpression = "starts_with({field})" },
			wantMsg: "template must contain {value}",
		},
		{
			name:    "regex template without regex placeholder",
			mutate:  func(d *Dialect) { d.RegexExpression = "{field}=//" },
			wantMsg: "template must contain {regex}",
		},
		{
			name:    "compare template without operator placeholder",
			mutate:  func(d *Dialect) { d.CompareOpExpression = "{field} {value}" },
			wantMsg: "template must contain {operator}",
		},
		{
			name:    "or-as-in without operator",
			mutate:  func(d *Dialect) { d.ConvertOrAsIn = true; d.FieldInListExpression = "{field} {op} [{list}]" },
			wantMsg: "in-list template and OR operator required",
		},
		{
			name: "and-as-in without operator",
			mutate: func(d *Dialect) {
				d.ConvertAndAsIn = true
				d.FieldInListExpression = "{field} {op} [{list}]"
			},
			wantMsg: "in-list template and AND operator required",
		},
		{
			name:    "in-list template without list placeholder",
			mutate:  func(d *Dialect) { d.FieldInListExpression = "{field} IN []" },
			wantMsg: "template must contain {list}",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := testDialect()
			tc.mutate(d)
			err := d.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	d := testDialect()
	d.Name = ""
	d.EqToken = ""
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dialect name is required")
	assert.Contains(t, err.Error(), "equality token is required")
}
