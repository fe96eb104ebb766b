package sqlstore

import "testing"

func TestRebind(t *testing.T) {
	pg := &DB{dialect: Dollar}
	got := pg.q(`SELECT a FROM t WHERE x = ? AND y = ? LIMIT ?`)
	want := `SELECT a FROM t WHERE x = $1 AND y = $2 LIMIT $3`
	if got != want {
		t.Errorf("q = %q, want %q", got, want)
	}

	lite := &DB{dialect: QuestionMark}
	if q := `SELECT ? `; lite.q(q) != q {
		t.Errorf("sqlite queries should pass through, got %q", lite.q(q))
	}
}
