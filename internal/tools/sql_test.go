package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSelect(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr error
	}{
		{"simple select", "SELECT * FROM team_stats", nil},
		{"lowercase with trailing semicolon", "select team from team_stats;", nil},
		{"cte", "WITH t AS (SELECT team FROM team_stats) SELECT * FROM t", nil},
		{"leading comment", "-- top passers\nSELECT team FROM team_stats", nil},
		{"replace function", "SELECT replace(team, 'OAK', 'LV') FROM team_stats", nil},
		{"semicolon inside string", "SELECT * FROM team_stats WHERE team = 'A;B'", nil},
		{"keyword inside string", "SELECT 'update' AS note", nil},
		{"comment marker inside string", "SELECT '--' || team FROM team_stats WHERE team = 'KC'", nil},
		{"escaped quote", "SELECT 'it''s; delete' FROM team_stats", nil},
		{"quoted identifier", `SELECT "drop" FROM team_stats`, nil},
		{"trailing block comment", "SELECT team FROM team_stats /* ; drop */", nil},
		{"empty", "   ", errEmptyQuery},
		{"only comment", "/* nothing */", errEmptyQuery},
		{"two statements", "SELECT 1; DROP TABLE team_stats", errMultiStatement},
		{"delete", "DELETE FROM team_stats", errNotSelect},
		{"pragma", "PRAGMA table_info(team_stats)", errNotSelect},
		{"cte wrapping delete", "WITH x AS (SELECT 1) DELETE FROM team_stats", errWriteKeyword},
		{"statement after string", "SELECT 'a;b'; DELETE FROM team_stats", errMultiStatement},
		{"unterminated string hides nothing", "SELECT 'abc", nil},
		{"attach in select", "SELECT * FROM team_stats WHERE 1 = 1 AND ATTACH", errWriteKeyword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSelect(tt.query)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSkeleton(t *testing.T) {
	assert.Equal(t, "SELECT '' || team FROM t WHERE x = ''  ", skeleton("SELECT '--' || team FROM t WHERE x = 'a;b' -- tail"))
	assert.Equal(t, "SELECT \"\",   [] FROM t", skeleton(`SELECT "a""b", /* c */ [d e] FROM t`))
}
